package plants

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GreenHydrogen/H2-Backend/internal/geo"
)

func validPlant() Plant {
	return Plant{
		Name:          "NTPC Vindhyachal Green Hydrogen",
		City:          "Vindhyachal",
		State:         "madhya pradesh",
		Latitude:      24.1115,
		Longitude:     82.6507,
		CompanyName:   "NTPC Limited",
		CompanyType:   "Government",
		CapacityValue: 47.48,
		Status:        "operational",
		PrimaryType:   "Green Hydrogen Production",
	}
}

func TestNormalizeDefaults(t *testing.T) {
	p := Plant{Name: "  X  ", State: "uttar pradesh"}
	p.Normalize()
	if p.Name != "X" || p.State != "Uttar Pradesh" {
		t.Errorf("got name %q state %q", p.Name, p.State)
	}
	if p.Country != "India" || p.CapacityUnit != "MW" || p.CompanyType != "Private" || p.Status != "planned" || p.Priority != 3 {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Plant)
		ok     bool
	}{
		{"valid", func(p *Plant) {}, true},
		{"missing name", func(p *Plant) { p.Name = "" }, false},
		{"missing company", func(p *Plant) { p.CompanyName = "" }, false},
		{"latitude out of range", func(p *Plant) { p.Latitude = 95 }, false},
		{"negative capacity", func(p *Plant) { p.CapacityValue = -1 }, false},
		{"unknown unit", func(p *Plant) { p.CapacityUnit = "kg" }, false},
		{"tonnes per day", func(p *Plant) { p.CapacityUnit = "TPD" }, true},
		{"unknown status", func(p *Plant) { p.Status = "dreaming" }, false},
		{"unknown company type", func(p *Plant) { p.CompanyType = "Charity" }, false},
		{"unknown type", func(p *Plant) { p.PrimaryType = "Pink Hydrogen" }, false},
		{"priority too high", func(p *Plant) { p.Priority = 6 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlant()
			p.Normalize()
			tt.modify(&p)
			err := p.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidPlant) {
				t.Fatalf("expected ErrInvalidPlant, got %v", err)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	p := validPlant()
	p.Normalize()
	p.ID = "abc"

	s := p.Summary()
	if s.Location != "Vindhyachal, Madhya Pradesh" {
		t.Errorf("location = %q", s.Location)
	}
	if s.Capacity != "47.48 MW" {
		t.Errorf("capacity = %q", s.Capacity)
	}
	if s.Coordinates != [2]float64{24.1115, 82.6507} {
		t.Errorf("coordinates = %v", s.Coordinates)
	}
	if s.Commissioning != "TBD" {
		t.Errorf("commissioning = %q", s.Commissioning)
	}

	planned := time.Date(2030, 3, 31, 0, 0, 0, 0, time.UTC)
	p.PlannedCommissioning = &planned
	if got := p.Summary().Commissioning; got != "2030" {
		t.Errorf("commissioning = %q", got)
	}
}

func TestParseSeed(t *testing.T) {
	data := []byte(`
plants:
  - name: "Adani Green Hydrogen Project"
    city: Kutch
    state: gujarat
    latitude: 23.7337
    longitude: 69.8597
    company_name: Adani Green Energy
    capacity_value: 30
    capacity_unit: GW
    status: planned
    primary_type: Green Hydrogen Production
    applications: [Export, Steel, Ammonia]
    is_active: true
`)
	ps, err := ParseSeed(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 {
		t.Fatalf("got %d plants", len(ps))
	}
	p := ps[0]
	if p.State != "Gujarat" || p.CompanyType != "Private" {
		t.Errorf("normalize not applied: %+v", p)
	}
	if p.ID != SeedID("Adani Green Hydrogen Project") {
		t.Errorf("id = %q", p.ID)
	}
	if len(p.Applications) != 3 || p.Applications[2] != "Ammonia" {
		t.Errorf("applications = %v", p.Applications)
	}
}

func TestParseSeedRejectsInvalidEntry(t *testing.T) {
	data := []byte("plants:\n  - name: Nowhere\n    city: X\n    state: Y\n    company_name: Z\n    latitude: 120\n    primary_type: Integrated Complex\n")
	if _, err := ParseSeed(data); !errors.Is(err, ErrInvalidPlant) {
		t.Fatalf("expected ErrInvalidPlant, got %v", err)
	}
}

func TestBundledSeedFile(t *testing.T) {
	ps, err := LoadSeedFile("../../seeds/hydrogen_plants.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) < 25 {
		t.Fatalf("catalog has %d plants", len(ps))
	}
	seen := map[string]bool{}
	for _, p := range ps {
		if seen[p.ID] {
			t.Errorf("duplicate id for %q", p.Name)
		}
		seen[p.ID] = true
	}
}

func TestSeedIDStable(t *testing.T) {
	if SeedID("IOCL Green Hydrogen Plant") != SeedID("  iocl green hydrogen plant ") {
		t.Error("seed id should ignore case and padding")
	}
	if SeedID("a") == SeedID("b") {
		t.Error("different names share an id")
	}
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		query string
		want  ListQuery
	}{
		{"", ListQuery{Limit: 50, Page: 1}},
		{"status=all", ListQuery{Limit: 50, Page: 1}},
		{"status=planned&state=Guj&limit=10&page=3", ListQuery{Status: "planned", State: "Guj", Limit: 10, Page: 3}},
		{"limit=-4&page=zero", ListQuery{Limit: 50, Page: 1}},
		{"limit=100000", ListQuery{Limit: maxLimit, Page: 1}},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := parseListQuery(r); got != tt.want {
			t.Errorf("%q: got %+v, want %+v", tt.query, got, tt.want)
		}
	}
	if off := (ListQuery{Limit: 10, Page: 3}).Offset(); off != 20 {
		t.Errorf("offset = %d", off)
	}
}

func TestFilterWithin(t *testing.T) {
	gujarat := geo.Polygon{
		{Lat: 20.0, Lng: 68.0},
		{Lat: 24.8, Lng: 68.0},
		{Lat: 24.8, Lng: 74.5},
		{Lat: 20.0, Lng: 74.5},
	}
	ps := []Plant{
		{Name: "Jamnagar", Latitude: 22.4707, Longitude: 70.0577},
		{Name: "Mathura", Latitude: 27.4924, Longitude: 77.6737},
		{Name: "Hazira", Latitude: 21.1013, Longitude: 72.6186},
	}
	got := FilterWithin(ps, gujarat)
	if len(got) != 2 || got[0].Name != "Jamnagar" || got[1].Name != "Hazira" {
		t.Errorf("got %+v", got)
	}
}

func TestBounds(t *testing.T) {
	lo, hi, ok := bounds(geo.Polygon{{Lat: 2, Lng: 5}, {Lat: -1, Lng: 7}, {Lat: 3, Lng: 6}})
	if !ok || lo != (geo.Vertex{Lat: -1, Lng: 5}) || hi != (geo.Vertex{Lat: 3, Lng: 7}) {
		t.Errorf("bounds = %v %v %v", lo, hi, ok)
	}
	if _, _, ok := bounds(nil); ok {
		t.Error("empty polygon has no bounds")
	}
}

// These paths reject the request before any query runs.
func TestHandlersRejectBadInput(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/{id}", GetHandler)
	r.Put("/{id}", UpdateHandler)
	r.Delete("/{id}", DeleteHandler)
	r.Post("/", CreateHandler)
	r.Post("/within", WithinHandler)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/not-a-uuid", ""},
		{http.MethodPut, "/42", "{}"},
		{http.MethodDelete, "/42", ""},
		{http.MethodPost, "/", "{"},
		{http.MethodPost, "/", `{"name":"X","city":"Y","state":"Z","company_name":"C","primary_type":"Nope"}`},
		{http.MethodPost, "/within", `{"coordinates":[[20,77],[21,77]]}`},
		{http.MethodPost, "/within", `nope`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s %s: status %d, want 400", tt.method, tt.path, tt.body, rec.Code)
		}
	}
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Gujarat", "%Gujarat%"},
		{"%", `%\%%`},
		{"Tamil_Nadu", `%Tamil\_Nadu%`},
		{`a\b`, `%a\\b%`},
		{"", "%%"},
	}
	for _, tt := range tests {
		if got := containsPattern(tt.in); got != tt.want {
			t.Errorf("containsPattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
