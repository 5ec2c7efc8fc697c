// Package schema provides YAML loading for operator-defined goals.
package schema

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// goalsFile is the top-level structure of a goals YAML file.
type goalsFile struct {
	Goals []goalDoc `yaml:"goals"`
}

type goalDoc struct {
	Name  string    `yaml:"name"`
	Slots []slotDoc `yaml:"slots"`
}

// slotDoc mirrors models.Slot but defaults required to true when omitted,
// matching how interview schemas are usually written.
type slotDoc struct {
	FieldID           string              `yaml:"field_id"`
	Prompt            string              `yaml:"prompt"`
	Kind              models.SlotKind     `yaml:"kind"`
	Options           []string            `yaml:"options"`
	Keywords          map[string][]string `yaml:"keywords"`
	ValidationPattern string              `yaml:"validation_pattern"`
	Required          *bool               `yaml:"required"`
	Help              string              `yaml:"help"`
	DependsOn         string              `yaml:"depends_on"`
	DependsValue      string              `yaml:"depends_value"`
	Scale             bool                `yaml:"scale"`
}

func (d slotDoc) toSlot() models.Slot {
	required := true
	if d.Required != nil {
		required = *d.Required
	}
	kind := d.Kind
	if kind == "" {
		kind = models.SlotKindText
	}
	return models.Slot{
		FieldID:           d.FieldID,
		Prompt:            d.Prompt,
		Kind:              kind,
		Options:           d.Options,
		Keywords:          d.Keywords,
		ValidationPattern: d.ValidationPattern,
		Required:          required,
		Help:              d.Help,
		DependsOn:         d.DependsOn,
		DependsValue:      d.DependsValue,
		Scale:             d.Scale,
	}
}

// LoadGoals reads and validates goals from a YAML file. Every goal in the
// file must pass Validate; a single invalid goal fails the whole load so a
// misconfigured schema never reaches the engine.
func LoadGoals(path string) ([]models.Goal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read goals file %s: %w", path, err)
	}

	var file goalsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse goals file %s: %w", path, err)
	}

	goals := make([]models.Goal, 0, len(file.Goals))
	for _, doc := range file.Goals {
		goal := models.Goal{Name: doc.Name, Slots: make([]models.Slot, 0, len(doc.Slots))}
		for _, sd := range doc.Slots {
			goal.Slots = append(goal.Slots, sd.toSlot())
		}
		if err := Validate(goal); err != nil {
			return nil, fmt.Errorf("goals file %s: %w", path, err)
		}
		goals = append(goals, goal)
	}

	slog.Debug("schema.LoadGoals: goals loaded", "path", path, "count", len(goals))
	return goals, nil
}

// LoadAndRegisterGoals loads goals from a YAML file and adds them to the registry.
func LoadAndRegisterGoals(path string) error {
	goals, err := LoadGoals(path)
	if err != nil {
		return err
	}
	for _, goal := range goals {
		if err := Register(goal); err != nil {
			return err
		}
	}
	slog.Info("schema.LoadAndRegisterGoals: registered goals from file", "path", path, "count", len(goals))
	return nil
}
