// Package scene builds host documents from YAML scene files.
//
// Scene coordinates, elevations and length parameters are millimeters,
// angle parameters are degrees; Build converts them to internal units.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// Scene is the YAML description of a document.
type Scene struct {
	// Title is the document title reported by status queries.
	Title string `yaml:"title"`
	// ActiveView names the view that is active after Build.
	ActiveView string `yaml:"activeView"`
	// ViewFamilies lists the view types the document can create. Absent
	// means all; an empty list means none.
	ViewFamilies []string  `yaml:"viewFamilies" validate:"omitempty,dive,oneof=FloorPlan CeilingPlan ThreeD Section"`
	Levels       []Level   `yaml:"levels" validate:"dive"`
	Views        []View    `yaml:"views" validate:"dive"`
	Elements     []Element `yaml:"elements" validate:"dive"`
	Regions      []Region  `yaml:"regions" validate:"dive"`
	Rooms        []Room    `yaml:"rooms" validate:"dive"`
}

// Level is a level with an elevation in millimeters.
type Level struct {
	ID            ir.ElementID `yaml:"id"`
	Name          string       `yaml:"name" validate:"required"`
	Elevation     float64      `yaml:"elevation"`
	BuildingStory *bool        `yaml:"buildingStory"`
}

// View is a view, optionally tied to a level.
type View struct {
	ID       ir.ElementID `yaml:"id"`
	Name     string       `yaml:"name" validate:"required"`
	Type     string       `yaml:"type" validate:"required,oneof=FloorPlan CeilingPlan ThreeD Section"`
	Level    ir.ElementID `yaml:"level"`
	Template bool         `yaml:"template"`
	Locked   bool         `yaml:"locked"`
}

// Element is a model element or type.
type Element struct {
	ID            ir.ElementID `yaml:"id"`
	Kind          string       `yaml:"kind" validate:"required,oneof=instance wall floor type"`
	Name          string       `yaml:"name"`
	Category      string       `yaml:"category"`
	Host          ir.ElementID `yaml:"host"`
	Level         ir.ElementID `yaml:"level"`
	Location      []float64    `yaml:"location" validate:"omitempty,len=3"`
	Bounds        *Box         `yaml:"bounds"`
	CanFlipHand   bool         `yaml:"canFlipHand"`
	CanFlipFacing bool         `yaml:"canFlipFacing"`
	Pinned        bool         `yaml:"pinned"`
	Undeletable   bool         `yaml:"undeletable"`
	Unhideable    bool         `yaml:"unhideable"`
	Params        []Param      `yaml:"params" validate:"dive"`
}

// Box is an axis-aligned bounding box in millimeters.
type Box struct {
	Min []float64 `yaml:"min" validate:"len=3"`
	Max []float64 `yaml:"max" validate:"len=3"`
}

// Param is an element parameter. Value is given in wire units.
type Param struct {
	Name     string `yaml:"name" validate:"required"`
	Builtin  string `yaml:"builtin"`
	Storage  string `yaml:"storage" validate:"required,oneof=string double integer element_id"`
	Measure  string `yaml:"measure" validate:"omitempty,oneof=none length angle"`
	ReadOnly bool   `yaml:"readOnly"`
	Value    any    `yaml:"value"`
}

// Region is an enclosed plan rectangle in which rooms can be placed.
type Region struct {
	Level ir.ElementID `yaml:"level" validate:"required"`
	Min   []float64    `yaml:"min" validate:"len=2"`
	Max   []float64    `yaml:"max" validate:"len=2"`
}

// Room is a pre-existing room. A room whose point lies inside a region of
// its level is placed and takes the region's area.
type Room struct {
	ID         ir.ElementID `yaml:"id"`
	Name       string       `yaml:"name"`
	Number     string       `yaml:"number"`
	Level      ir.ElementID `yaml:"level" validate:"required"`
	At         []float64    `yaml:"at" validate:"omitempty,len=2"`
	Department string       `yaml:"department"`
	Comments   string       `yaml:"comments"`
}

var sceneValidate *validator.Validate

func init() {
	sceneValidate = validator.New(validator.WithRequiredStructEnabled())
	sceneValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scene document.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if err := sceneValidate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	return &s, nil
}

// LoadDocument loads a scene file and builds its document.
func LoadDocument(path string) (*host.Document, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return s.Build()
}

// Build creates a document from the scene.
func (s *Scene) Build() (*host.Document, error) {
	doc := host.NewDocument()
	doc.SetTitle(s.Title)
	if s.ViewFamilies != nil {
		types := make([]host.ViewType, len(s.ViewFamilies))
		for i, t := range s.ViewFamilies {
			types[i] = host.ViewType(t)
		}
		doc.SetViewFamilies(types...)
	}

	for _, l := range s.Levels {
		story := true
		if l.BuildingStory != nil {
			story = *l.BuildingStory
		}
		elev := units.MMToInternal(l.Elevation)
		if _, err := doc.Seed(&host.Element{
			ID:       l.ID,
			Kind:     host.KindLevel,
			Name:     l.Name,
			Location: ir.XYZ{Z: elev},
			Level:    &host.LevelData{Elevation: elev, BuildingStory: story},
		}); err != nil {
			return nil, fmt.Errorf("level %q: %w", l.Name, err)
		}
	}

	for _, v := range s.Views {
		if v.Level != 0 {
			if err := requireLevel(doc, v.Level); err != nil {
				return nil, fmt.Errorf("view %q: %w", v.Name, err)
			}
		}
		data := host.NewViewData(host.ViewType(v.Type))
		data.Template = v.Template
		data.Locked = v.Locked
		if _, err := doc.Seed(&host.Element{
			ID:      v.ID,
			Kind:    host.KindView,
			Name:    v.Name,
			LevelID: v.Level,
			View:    data,
		}); err != nil {
			return nil, fmt.Errorf("view %q: %w", v.Name, err)
		}
	}

	for i, e := range s.Elements {
		el, err := e.element()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i+1, err)
		}
		if _, err := doc.Seed(el); err != nil {
			return nil, fmt.Errorf("element %d: %w", i+1, err)
		}
	}

	for i, r := range s.Regions {
		if err := requireLevel(doc, r.Level); err != nil {
			return nil, fmt.Errorf("region %d: %w", i+1, err)
		}
		doc.AddRegion(host.Region{
			LevelID: r.Level,
			Min:     ir.XYZ{X: units.MMToInternal(r.Min[0]), Y: units.MMToInternal(r.Min[1])},
			Max:     ir.XYZ{X: units.MMToInternal(r.Max[0]), Y: units.MMToInternal(r.Max[1])},
		})
	}

	for _, r := range s.Rooms {
		if err := seedRoom(doc, r); err != nil {
			return nil, fmt.Errorf("room %q: %w", r.Number, err)
		}
	}

	if s.ActiveView != "" {
		v, ok := viewNamed(doc, s.ActiveView)
		if !ok {
			return nil, fmt.Errorf("active view %q not found", s.ActiveView)
		}
		if err := doc.SetActiveView(v.ID); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (e Element) element() (*host.Element, error) {
	el := &host.Element{
		ID:            e.ID,
		Kind:          host.ElementKind(e.Kind),
		Name:          e.Name,
		Category:      e.Category,
		HostID:        e.Host,
		LevelID:       e.Level,
		Pinned:        e.Pinned,
		CanFlipHand:   e.CanFlipHand,
		CanFlipFacing: e.CanFlipFacing,
		Undeletable:   e.Undeletable,
		Unhideable:    e.Unhideable,
	}
	if e.Location != nil {
		el.Location = point(e.Location)
	}
	if e.Bounds != nil {
		el.Bounds = &ir.Box{Min: point(e.Bounds.Min), Max: point(e.Bounds.Max)}
	}
	for _, p := range e.Params {
		param, err := p.parameter()
		if err != nil {
			return nil, err
		}
		el.Params = append(el.Params, param)
	}
	return el, nil
}

func (p Param) parameter() (*host.Parameter, error) {
	out := &host.Parameter{
		Name:     p.Name,
		Builtin:  p.Builtin,
		Storage:  host.StorageType(p.Storage),
		Measure:  measure(p.Measure),
		ReadOnly: p.ReadOnly,
	}
	var err error
	switch out.Storage {
	case host.StorageString:
		out.Value = units.ToString(p.Value)
	case host.StorageDouble:
		var f float64
		if p.Value != nil {
			f, err = units.ToFloat(p.Value)
		}
		out.Value = units.ToInternal(f, out.Measure)
	case host.StorageInteger:
		var n int64
		if p.Value != nil {
			n, err = units.ToInt(p.Value)
		}
		out.Value = n
	case host.StorageElementID:
		var id ir.ElementID
		if p.Value != nil {
			id, err = units.ToElementID(p.Value)
		}
		out.Value = id
	}
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	return out, nil
}

func seedRoom(doc *host.Document, r Room) error {
	lvl, err := levelOf(doc, r.Level)
	if err != nil {
		return err
	}
	name := r.Name
	if name == "" {
		name = "Room"
	}
	e := &host.Element{
		ID:       r.ID,
		Kind:     host.KindRoom,
		Name:     name,
		Category: "Rooms",
		LevelID:  lvl.ID,
		Location: ir.XYZ{Z: lvl.Level.Elevation},
		Room: &host.RoomData{
			Number:     r.Number,
			Department: r.Department,
			Comments:   r.Comments,
		},
	}
	if r.At != nil {
		x, y := units.MMToInternal(r.At[0]), units.MMToInternal(r.At[1])
		e.Location.X, e.Location.Y = x, y
		if region, ok := doc.RegionAt(lvl.ID, x, y); ok {
			e.Room.Area = region.Area()
			e.Room.Perimeter = region.Perimeter()
			e.Bounds = &ir.Box{
				Min: ir.XYZ{X: region.Min.X, Y: region.Min.Y, Z: lvl.Level.Elevation},
				Max: ir.XYZ{X: region.Max.X, Y: region.Max.Y, Z: lvl.Level.Elevation + 10},
			}
		}
	}
	_, err = doc.Seed(e)
	return err
}

func requireLevel(doc *host.Document, id ir.ElementID) error {
	_, err := levelOf(doc, id)
	return err
}

func levelOf(doc *host.Document, id ir.ElementID) (*host.Element, error) {
	e, ok := doc.Element(id)
	if !ok || e.Level == nil {
		return nil, fmt.Errorf("level %d not found", id)
	}
	return e, nil
}

func viewNamed(doc *host.Document, name string) (*host.Element, bool) {
	for _, e := range doc.ElementsOfKind(host.KindView) {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

func point(v []float64) ir.XYZ {
	return units.PointToInternal(ir.XYZ{X: v[0], Y: v[1], Z: v[2]})
}

func measure(s string) units.Measure {
	switch s {
	case "length":
		return units.MeasureLength
	case "angle":
		return units.MeasureAngle
	default:
		return units.MeasureNone
	}
}
