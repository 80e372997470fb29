package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joeblew999/plat-style/internal/project"
)

// ProjectFile is the name of the project descriptor kept in the data
// directory.
const ProjectFile = "project.yaml"

// LayerService manages the layers of the server's project.
type LayerService struct {
	dataDir string
	project project.Project
	bus     *EventBus
	mu      sync.RWMutex
}

// NewLayerService creates a layer service backed by <dataDir>/project.yaml.
// A nil bus publishes on DefaultBus.
func NewLayerService(dataDir string, bus *EventBus) (*LayerService, error) {
	if bus == nil {
		bus = DefaultBus
	}
	s := &LayerService{dataDir: dataDir, bus: bus}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns all layers in drawing order.
func (s *LayerService) List() []project.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]project.Layer{}, s.project.Layers...)
}

// Project returns a copy of the project.
func (s *LayerService) Project() *project.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &project.Project{
		Name:   s.project.Name,
		Layers: append([]project.Layer{}, s.project.Layers...),
	}
}

// Get returns a layer by ID.
func (s *LayerService) Get(id string) (project.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.project.Layer(id)
}

// Create appends a layer. Its ID is derived from the name.
func (s *LayerService) Create(layer project.Layer) (project.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(layer.ID()) >= 0 {
		return project.Layer{}, fmt.Errorf("layer with ID %q already exists", layer.ID())
	}
	if err := s.commit(append(append([]project.Layer{}, s.project.Layers...), layer)); err != nil {
		return project.Layer{}, err
	}
	s.bus.Publish(Event{Resource: ResourceLayers, Action: ActionCreated, ID: layer.ID()})
	return layer, nil
}

// Update replaces the layer with the given ID, keeping its position.
func (s *LayerService) Update(id string, layer project.Layer) (project.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return project.Layer{}, fmt.Errorf("layer %q not found", id)
	}
	layers := append([]project.Layer{}, s.project.Layers...)
	layers[i] = layer
	if err := s.commit(layers); err != nil {
		return project.Layer{}, err
	}
	s.bus.Publish(Event{Resource: ResourceLayers, Action: ActionUpdated, ID: layer.ID()})
	return layer, nil
}

// Delete removes a layer by ID.
func (s *LayerService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("layer %q not found", id)
	}
	layers := append(append([]project.Layer{}, s.project.Layers[:i]...), s.project.Layers[i+1:]...)
	if err := s.commit(layers); err != nil {
		return err
	}
	s.bus.Publish(Event{Resource: ResourceLayers, Action: ActionDeleted, ID: id})
	return nil
}

// Merge adds layers to the project. With replace set the project's layers
// are replaced; otherwise layers whose ID already exists are skipped. It
// returns the IDs that were written.
func (s *LayerService) Merge(layers []project.Layer, replace bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := []project.Layer{}
	if !replace {
		next = append(next, s.project.Layers...)
	}
	var ids []string
	for _, l := range layers {
		if !replace && s.index(l.ID()) >= 0 {
			continue
		}
		next = append(next, l)
		ids = append(ids, l.ID())
	}
	if err := s.commit(next); err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.bus.Publish(Event{Resource: ResourceLayers, Action: ActionCreated, ID: id})
	}
	return ids, nil
}

func (s *LayerService) index(id string) int {
	for i, l := range s.project.Layers {
		if l.ID() == id {
			return i
		}
	}
	return -1
}

// commit validates layers as the new project content and persists it.
// Callers hold the write lock.
func (s *LayerService) commit(layers []project.Layer) error {
	next := project.Project{Name: s.project.Name, Layers: layers}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := next.Save(s.configFile()); err != nil {
		return err
	}
	s.project = next
	return nil
}

// configFile returns the path to the project file.
func (s *LayerService) configFile() string {
	return filepath.Join(s.dataDir, ProjectFile)
}

// loadFromDisk loads the project; a missing file starts an empty project.
func (s *LayerService) loadFromDisk() error {
	p, err := project.Load(s.configFile())
	if errors.Is(err, os.ErrNotExist) {
		s.project = project.Project{Name: project.DefaultName}
		return nil
	}
	if err != nil {
		return err
	}
	s.project = *p
	return nil
}
