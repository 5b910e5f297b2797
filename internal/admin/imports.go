package admin

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GreenHydrogen/H2-Backend/internal/db"
	"github.com/GreenHydrogen/H2-Backend/internal/plants"
)

const maxImportBytes = 4 << 20

// ImportJob tracks a background plant catalog import.
type ImportJob struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"` // "running", "completed", "completed_with_errors"
	Total        int        `json:"total"`
	Completed    int        `json:"completed"`
	Failed       int        `json:"failed"`
	Current      string     `json:"current,omitempty"`
	FailedPlants []string   `json:"failed_plants,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

var (
	importJobs   = make(map[string]*ImportJob)
	importJobsMu sync.Mutex
)

// upsertPlant is swapped out in tests.
var upsertPlant = func(ctx context.Context, p plants.Plant) error {
	return plants.Upsert(ctx, db.DB, p)
}

// StartImportHandler handles POST /plants/import with a YAML catalog body.
// Entries are checked up front; the writes run in the background.
func StartImportHandler(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ps, err := plants.ParseSeed(data)
	if err != nil {
		message(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(ps) == 0 {
		message(w, http.StatusBadRequest, "At least one plant is required")
		return
	}

	job := &ImportJob{
		ID:        uuid.NewString(),
		Status:    "running",
		Total:     len(ps),
		StartedAt: time.Now(),
	}

	importJobsMu.Lock()
	importJobs[job.ID] = job
	importJobsMu.Unlock()

	go runImport(job, ps)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": "running",
	})
}

func snapshot(job *ImportJob) ImportJob {
	s := *job
	if job.FailedPlants != nil {
		s.FailedPlants = append([]string(nil), job.FailedPlants...)
	}
	return s
}

// GetImportHandler handles GET /plants/import/{jobID}.
func GetImportHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	importJobsMu.Lock()
	job, ok := importJobs[jobID]
	var s ImportJob
	if ok {
		s = snapshot(job)
	}
	importJobsMu.Unlock()

	if !ok {
		message(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func ListImportsHandler(w http.ResponseWriter, r *http.Request) {
	importJobsMu.Lock()
	jobs := make([]ImportJob, 0, len(importJobs))
	for _, job := range importJobs {
		jobs = append(jobs, snapshot(job))
	}
	importJobsMu.Unlock()

	writeJSON(w, http.StatusOK, jobs)
}

func runImport(job *ImportJob, ps []plants.Plant) {
	ctx := context.Background()
	log.Printf("[admin] import job=%s starting with %d plants", job.ID, len(ps))

	for _, p := range ps {
		importJobsMu.Lock()
		job.Current = p.Name
		importJobsMu.Unlock()

		err := upsertPlant(ctx, p)

		importJobsMu.Lock()
		if err != nil {
			log.Printf("[admin] import job=%s plant %q failed: %v", job.ID, p.Name, err)
			job.Failed++
			job.FailedPlants = append(job.FailedPlants, p.Name)
		} else {
			job.Completed++
		}
		importJobsMu.Unlock()
	}

	now := time.Now()
	importJobsMu.Lock()
	job.Current = ""
	job.CompletedAt = &now
	if job.Failed > 0 {
		job.Status = "completed_with_errors"
	} else {
		job.Status = "completed"
	}
	importJobsMu.Unlock()

	log.Printf("[admin] import job=%s finished, completed=%d failed=%d", job.ID, job.Completed, job.Failed)
}
