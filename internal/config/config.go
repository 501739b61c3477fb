// Package config holds the parameters of a planning problem and loads them
// from .cfg, YAML or HCL files.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"car-planner/internal/connectivity"
	"car-planner/internal/cost"
	"car-planner/internal/cspace"
	"car-planner/internal/se2"
)

var (
	// ErrMissingParameter is returned when a required parameter is absent.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrConflictingWeights is returned when both ac and wt are given.
	ErrConflictingWeights = errors.New("ac and wt are mutually exclusive")
	// ErrInvalid is returned when a parameter has an unusable value.
	ErrInvalid = errors.New("invalid parameter")
)

var validate = validator.New()

// Params describes one planning problem. Vectors are (theta, x, y).
type Params struct {
	Start     []float64 `yaml:"start" json:"start,omitempty" validate:"omitempty,len=3"`
	Goal      []float64 `yaml:"goal" json:"goal,omitempty" validate:"omitempty,len=3"`
	Map       string    `yaml:"map" json:"map"`
	CMap      string    `yaml:"cmap" json:"cmap,omitempty"`
	Obstacles string    `yaml:"obstacles" json:"obstacles,omitempty"`

	// TMap is a terrain image on the occupancy map raster; its brightness
	// scales the cost of entering each grid cell.
	TMap string `yaml:"tmap" json:"tmap,omitempty"`

	// OCS is the configuration map cell size. Two values are (x, y) and
	// take the angle from GCS.
	OCS []float64 `yaml:"ocs" json:"ocs,omitempty" validate:"omitempty,min=2,max=3,dive,gt=0"`
	GCS []float64 `yaml:"gcs" json:"gcs,omitempty" validate:"omitempty,len=3,dive,gt=0"`

	// Geom is (length, width, offset x, offset y[, buffer]).
	Geom []float64 `yaml:"geom" json:"geom,omitempty" validate:"omitempty,min=4,max=5"`

	AC *float64  `yaml:"ac" json:"ac,omitempty" validate:"omitempty,gte=0"`
	WT []float64 `yaml:"wt" json:"wt,omitempty" validate:"omitempty,len=3,dive,gte=0"`

	DT      float64 `yaml:"dt" json:"dt" validate:"gt=0"`
	VX      float64 `yaml:"vx" json:"vx" validate:"gt=0"`
	KMax    float64 `yaml:"kmax" json:"kmax" validate:"gt=0"`
	KSeg    int     `yaml:"kseg" json:"kseg" validate:"gt=0"`
	OnlyFwd bool    `yaml:"onlyfwd" json:"onlyfwd"`

	// AllowSlip adds sideways primitives.
	AllowSlip bool `yaml:"allow_slip" json:"allow_slip"`

	InitExpand bool `yaml:"initExpand" json:"initExpand"`
	NThreads   int  `yaml:"nthreads" json:"nthreads" validate:"gte=1"`
	PlotCar    bool `yaml:"plot_car" json:"plot_car"`
}

// Default returns parameters with every optional value set.
func Default() *Params {
	return &Params{
		GCS:       []float64{math.Pi / 8, 0.5, 0.5},
		DT:        connectivity.DefaultDT,
		VX:        connectivity.DefaultVX,
		KMax:      connectivity.DefaultKMax,
		KSeg:      connectivity.DefaultKSeg,
		OnlyFwd:   connectivity.DefaultOnlyFwd,
		AllowSlip: connectivity.DefaultSlip,
		NThreads:  1,
	}
}

// Validate checks the parameters and fills derived defaults.
func (p *Params) Validate() error {
	if p.Map == "" {
		return fmt.Errorf("%w: map", ErrMissingParameter)
	}
	if p.AC != nil && len(p.WT) > 0 {
		return ErrConflictingWeights
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(p.GCS) == 0 {
		p.GCS = []float64{math.Pi / 8, 0.5, 0.5}
	}
	switch len(p.OCS) {
	case 0:
		p.OCS = []float64{p.GCS[0], 0.1, 0.1}
	case 2:
		p.OCS = []float64{p.GCS[0], p.OCS[0], p.OCS[1]}
	}
	return nil
}

// HasStart reports whether a start pose was given.
func (p *Params) HasStart() bool { return len(p.Start) == 3 }

// HasGoal reports whether a goal pose was given.
func (p *Params) HasGoal() bool { return len(p.Goal) == 3 }

// StartPose returns the start pose, zero when unset.
func (p *Params) StartPose() se2.Pose { return pose(p.Start) }

// GoalPose returns the goal pose, zero when unset.
func (p *Params) GoalPose() se2.Pose { return pose(p.Goal) }

func pose(v []float64) se2.Pose {
	if len(v) != 3 {
		return se2.Pose{}
	}
	return se2.Pose{Theta: v[0], X: v[1], Y: v[2]}
}

// GridCellSize returns the search grid cell size.
func (p *Params) GridCellSize() [3]float64 {
	return [3]float64{p.GCS[0], p.GCS[1], p.GCS[2]}
}

// CostModel returns the cost described by ac or wt.
func (p *Params) CostModel() (*cost.Car, error) {
	if p.AC != nil && len(p.WT) > 0 {
		return nil, ErrConflictingWeights
	}
	if len(p.WT) == 3 {
		return cost.NewCarWeighted([3]float64{p.WT[0], p.WT[1], p.WT[2]})
	}
	ac := cost.DefaultAC
	if p.AC != nil {
		ac = *p.AC
	}
	return cost.NewCar(ac)
}

// Geometry returns the vehicle geometry, nil when none was given.
func (p *Params) Geometry() (*cspace.Geometry, error) {
	if len(p.Geom) == 0 {
		return nil, nil
	}
	return cspace.NewGeometry(p.Geom)
}
