package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// Load reads and validates parameters from path.
func Load(path string) (*Params, error) {
	p, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse reads parameters from path without validating them. The format
// follows the extension: .yaml and .yml are YAML, .hcl is HCL and anything
// else is the line based .cfg format. Values missing from the file keep
// their defaults.
func Parse(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}
	var p *Params
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		p, err = ParseYAML(data)
	case ".hcl":
		p, err = ParseHCL(data, path)
	default:
		p, err = ParseCfg(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return p, nil
}

// ParseYAML decodes YAML parameters over the defaults.
func ParseYAML(data []byte) (*Params, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

// hclParams mirrors Params for gohcl; pointers keep absent attributes apart
// from zero values.
type hclParams struct {
	Start      []float64 `hcl:"start,optional"`
	Goal       []float64 `hcl:"goal,optional"`
	Map        *string   `hcl:"map,optional"`
	CMap       *string   `hcl:"cmap,optional"`
	Obstacles  *string   `hcl:"obstacles,optional"`
	TMap       *string   `hcl:"tmap,optional"`
	OCS        []float64 `hcl:"ocs,optional"`
	GCS        []float64 `hcl:"gcs,optional"`
	Geom       []float64 `hcl:"geom,optional"`
	AC         *float64  `hcl:"ac,optional"`
	WT         []float64 `hcl:"wt,optional"`
	DT         *float64  `hcl:"dt,optional"`
	VX         *float64  `hcl:"vx,optional"`
	KMax       *float64  `hcl:"kmax,optional"`
	KSeg       *int      `hcl:"kseg,optional"`
	OnlyFwd    *bool     `hcl:"onlyfwd,optional"`
	AllowSlip  *bool     `hcl:"allow_slip,optional"`
	InitExpand *bool     `hcl:"initExpand,optional"`
	NThreads   *int      `hcl:"nthreads,optional"`
	PlotCar    *bool     `hcl:"plot_car,optional"`
}

// ParseHCL decodes HCL attributes over the defaults. filename is used in
// diagnostics only.
func ParseHCL(data []byte, filename string) (*Params, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, diags)
	}
	var h hclParams
	if diags := gohcl.DecodeBody(file.Body, nil, &h); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, diags)
	}

	p := Default()
	setSlice(&p.Start, h.Start)
	setSlice(&p.Goal, h.Goal)
	setSlice(&p.OCS, h.OCS)
	setSlice(&p.GCS, h.GCS)
	setSlice(&p.Geom, h.Geom)
	setSlice(&p.WT, h.WT)
	set(&p.Map, h.Map)
	set(&p.CMap, h.CMap)
	set(&p.Obstacles, h.Obstacles)
	set(&p.TMap, h.TMap)
	set(&p.DT, h.DT)
	set(&p.VX, h.VX)
	set(&p.KMax, h.KMax)
	set(&p.KSeg, h.KSeg)
	set(&p.OnlyFwd, h.OnlyFwd)
	set(&p.AllowSlip, h.AllowSlip)
	set(&p.InitExpand, h.InitExpand)
	set(&p.NThreads, h.NThreads)
	set(&p.PlotCar, h.PlotCar)
	p.AC = h.AC
	return p, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setSlice[T any](dst *[]T, v []T) {
	if v != nil {
		*dst = v
	}
}

// ParseCfg reads the line based format: one "key value..." pair per line,
// values separated by whitespace, '#' starts a comment. Unknown keys are
// ignored.
func ParseCfg(r io.Reader) (*Params, error) {
	p := Default()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := p.setCfg(fields[0], fields[1:]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Params) setCfg(key string, vals []string) error {
	var err error
	switch key {
	case "map":
		p.Map, err = one(key, vals)
	case "cmap":
		p.CMap, err = one(key, vals)
	case "obstacles":
		p.Obstacles, err = one(key, vals)
	case "tmap":
		p.TMap, err = one(key, vals)
	case "start":
		p.Start, err = floats(key, vals)
	case "goal":
		p.Goal, err = floats(key, vals)
	case "ocs":
		p.OCS, err = floats(key, vals)
	case "gcs":
		p.GCS, err = floats(key, vals)
	case "geom":
		p.Geom, err = floats(key, vals)
	case "wt":
		p.WT, err = floats(key, vals)
	case "ac":
		var v float64
		v, err = scalar(key, vals)
		p.AC = &v
	case "dt":
		p.DT, err = scalar(key, vals)
	case "vx":
		p.VX, err = scalar(key, vals)
	case "kmax":
		p.KMax, err = scalar(key, vals)
	case "kseg":
		p.KSeg, err = integer(key, vals)
	case "nthreads":
		p.NThreads, err = integer(key, vals)
	case "onlyfwd":
		p.OnlyFwd, err = boolean(key, vals)
	case "allow_slip":
		p.AllowSlip, err = boolean(key, vals)
	case "initExpand":
		p.InitExpand, err = boolean(key, vals)
	case "plot_car":
		p.PlotCar, err = boolean(key, vals)
	}
	return err
}

func one(key string, vals []string) (string, error) {
	if len(vals) != 1 {
		return "", fmt.Errorf("%w: %s takes one value, got %d", ErrInvalid, key, len(vals))
	}
	return vals[0], nil
}

func floats(key string, vals []string) ([]float64, error) {
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %s has no values", ErrInvalid, key)
	}
	out := make([]float64, len(vals))
	for i, s := range vals {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		out[i] = v
	}
	return out, nil
}

func scalar(key string, vals []string) (float64, error) {
	s, err := one(key, vals)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return v, nil
}

func integer(key string, vals []string) (int, error) {
	s, err := one(key, vals)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return v, nil
}

func boolean(key string, vals []string) (bool, error) {
	s, err := one(key, vals)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return v, nil
}
