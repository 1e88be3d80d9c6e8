package view

import (
	"sync"
	"time"
)

// Kind is the style of a notification banner
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Chart is replaced wholesale on every new metrics record; Revision tells
// viewers that a fresh chart must be drawn.
type Chart struct {
	Revision int       `json:"revision"`
	Labels   []string  `json:"labels"`
	Values   []float64 `json:"values"`
}

// Change compares a slot with the previous record
type Change struct {
	Percent float64 `json:"percent"`
	Class   string  `json:"class"`
}

type SurfaceInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Model is everything a viewer needs to draw the console
type Model struct {
	State          string `json:"state"`
	CameraDisabled bool   `json:"camera_disabled"`
	CameraError    string `json:"camera_error,omitempty"`
	PreviewActive  bool   `json:"preview_active"`
	Loading        bool   `json:"loading"`

	// Derived affordances
	ActionLabel    string `json:"action_label"`
	CaptureEnabled bool   `json:"capture_enabled"`
	SubmitEnabled  bool   `json:"submit_enabled"`

	Surface       SurfaceInfo       `json:"surface"`
	Slots         map[string]string `json:"slots"`
	Changes       map[string]Change `json:"changes,omitempty"`
	Chart         *Chart            `json:"chart,omitempty"`
	Notifications []Notification    `json:"notifications"`
}

// Clone returns a deep copy
func (m Model) Clone() Model {
	cp := m
	cp.Slots = make(map[string]string, len(m.Slots))
	for k, v := range m.Slots {
		cp.Slots[k] = v
	}
	if m.Changes != nil {
		cp.Changes = make(map[string]Change, len(m.Changes))
		for k, v := range m.Changes {
			cp.Changes[k] = v
		}
	}
	cp.Notifications = append([]Notification(nil), m.Notifications...)
	if m.Chart != nil {
		chart := *m.Chart
		chart.Labels = append([]string(nil), m.Chart.Labels...)
		chart.Values = append([]float64(nil), m.Chart.Values...)
		cp.Chart = &chart
	}
	return cp
}

// Renderer receives a full model snapshot after every change.
type Renderer interface {
	Render(m Model)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(m Model)

func (f RendererFunc) Render(m Model) { f(m) }

// Deriver fills the derived fields of a model from its raw state
type Deriver func(m *Model)

// Store owns the model. Updates and renders are serialised, so renderers
// see changes in order; a renderer must not call back into the Store.
type Store struct {
	mu        sync.Mutex
	model     Model
	derive    Deriver
	renderers []Renderer
}

func NewStore(derive Deriver, renderers ...Renderer) *Store {
	s := &Store{
		model: Model{
			Slots:         map[string]string{},
			Notifications: []Notification{},
		},
		derive:    derive,
		renderers: renderers,
	}
	if derive != nil {
		derive(&s.model)
	}
	return s
}

// AddRenderer attaches a renderer and immediately renders the current model to it
func (s *Store) AddRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers = append(s.renderers, r)
	r.Render(s.model.Clone())
}

// Update applies fn, re-derives affordances and renders the result
func (s *Store) Update(fn func(m *Model)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.model)
	if s.derive != nil {
		s.derive(&s.model)
	}
	for _, r := range s.renderers {
		r.Render(s.model.Clone())
	}
}

// Snapshot returns a copy of the current model
func (s *Store) Snapshot() Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Clone()
}
