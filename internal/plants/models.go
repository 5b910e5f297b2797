package plants

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lib/pq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Plant is an existing or announced hydrogen facility.
type Plant struct {
	ID      string `gorm:"primaryKey" json:"id" yaml:"id"`
	Name    string `gorm:"not null" json:"name" yaml:"name"`
	City    string `gorm:"not null" json:"city" yaml:"city"`
	State   string `gorm:"not null;index" json:"state" yaml:"state"`
	Country string `gorm:"default:'India'" json:"country" yaml:"country"`

	Latitude  float64 `gorm:"not null" json:"latitude" yaml:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude" yaml:"longitude"`

	CompanyName string `gorm:"not null;index" json:"company_name" yaml:"company_name"`
	CompanyType string `gorm:"default:'Private'" json:"company_type" yaml:"company_type"`

	CapacityValue float64 `gorm:"not null" json:"capacity_value" yaml:"capacity_value"`
	CapacityUnit  string  `gorm:"default:'MW'" json:"capacity_unit" yaml:"capacity_unit"`

	Status      string `gorm:"not null;index;default:'planned'" json:"status" yaml:"status"`
	PrimaryType string `gorm:"not null" json:"primary_type" yaml:"primary_type"`
	Technology  string `json:"technology,omitempty" yaml:"technology"`

	PlannedCommissioning *time.Time `json:"planned_commissioning,omitempty" yaml:"planned_commissioning"`
	ActualCommissioning  *time.Time `json:"actual_commissioning,omitempty" yaml:"actual_commissioning"`

	Description  string         `json:"description" yaml:"description"`
	Applications pq.StringArray `gorm:"type:text[]" json:"applications" yaml:"applications"`

	IsActive   bool `gorm:"default:true;index" json:"is_active" yaml:"is_active"`
	IsFeatured bool `gorm:"default:false" json:"is_featured" yaml:"is_featured"`
	Priority   int  `gorm:"default:3" json:"priority" yaml:"priority"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

func (Plant) TableName() string { return "h2.plants" }

var (
	Statuses     = []string{"operational", "under_construction", "planned", "decommissioned", "maintenance"}
	Units        = []string{"MW", "GW", "KW", "TPD", "TPDC"}
	CompanyTypes = []string{"Government", "Private", "Joint Venture", "Cooperative"}
	PrimaryTypes = []string{
		"Green Hydrogen Production",
		"Blue Hydrogen Production",
		"Grey Hydrogen Production",
		"Electrolysis Plant",
		"Steam Reforming Plant",
		"Integrated Complex",
	}
)

var ErrInvalidPlant = errors.New("invalid plant")

func oneOf(vs []string) validation.Rule {
	in := make([]interface{}, len(vs))
	for i, v := range vs {
		in[i] = v
	}
	return validation.In(in...).Error("must be one of: " + strings.Join(vs, ", "))
}

// Normalize fills defaults and tidies free-text fields in place.
func (p *Plant) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.City = strings.TrimSpace(p.City)
	p.State = cases.Title(language.English).String(strings.TrimSpace(p.State))
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.Description = strings.TrimSpace(p.Description)
	if p.Country == "" {
		p.Country = "India"
	}
	if p.CapacityUnit == "" {
		p.CapacityUnit = "MW"
	}
	if p.CompanyType == "" {
		p.CompanyType = "Private"
	}
	if p.Status == "" {
		p.Status = "planned"
	}
	if p.Priority == 0 {
		p.Priority = 3
	}
}

// Validate applies the catalog rules. Call Normalize first.
func (p Plant) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.City, validation.Required),
		validation.Field(&p.State, validation.Required),
		validation.Field(&p.CompanyName, validation.Required),
		validation.Field(&p.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&p.Longitude, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&p.CapacityValue, validation.Min(0.0)),
		validation.Field(&p.CapacityUnit, validation.Required, oneOf(Units)),
		validation.Field(&p.Status, validation.Required, oneOf(Statuses)),
		validation.Field(&p.CompanyType, validation.Required, oneOf(CompanyTypes)),
		validation.Field(&p.PrimaryType, validation.Required, oneOf(PrimaryTypes)),
		validation.Field(&p.Priority, validation.Min(1), validation.Max(5)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlant, err)
	}
	return nil
}

// Summary is the compact shape the map view lists.
type Summary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Location      string     `json:"location"`
	Coordinates   [2]float64 `json:"coordinates"`
	Capacity      string     `json:"capacity"`
	Status        string     `json:"status"`
	Company       string     `json:"company"`
	Type          string     `json:"type"`
	Commissioning string     `json:"commissioning"`
	Description   string     `json:"description"`
}

func (p Plant) Summary() Summary {
	commissioning := "TBD"
	if p.PlannedCommissioning != nil {
		commissioning = fmt.Sprint(p.PlannedCommissioning.Year())
	}
	return Summary{
		ID:            p.ID,
		Name:          p.Name,
		Location:      p.City + ", " + p.State,
		Coordinates:   [2]float64{p.Latitude, p.Longitude},
		Capacity:      CapacityString(p.CapacityValue, p.CapacityUnit),
		Status:        p.Status,
		Company:       p.CompanyName,
		Type:          p.PrimaryType,
		Commissioning: commissioning,
		Description:   p.Description,
	}
}

// CapacityString renders 47.48 MW, 100 GW, and so on.
func CapacityString(v float64, unit string) string {
	return fmt.Sprintf("%g %s", v, unit)
}

// Statistics aggregates the active catalog.
type Statistics struct {
	TotalPlants             int     `db:"total_plants" json:"totalPlants"`
	OperationalPlants       int     `db:"operational_plants" json:"operationalPlants"`
	UnderConstructionPlants int     `db:"under_construction_plants" json:"underConstructionPlants"`
	PlannedPlants           int     `db:"planned_plants" json:"plannedPlants"`
	TotalCapacity           float64 `db:"total_capacity" json:"totalCapacity"`
	AvgCapacity             float64 `db:"avg_capacity" json:"avgCapacity"`
}
