package table

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/rs/zerolog/log"
)

const familiesFileName = "families.config.json"

type familyRecord struct {
	Name    string                  `json:"name"`
	Options litetable.FamilyOptions `json:"options"`
}

// CreateFamily declares a column family. The schema file is rewritten atomically before the
// family becomes usable.
func (t *Table) CreateFamily(name string, opts litetable.FamilyOptions) error {
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.lifecycle.RUnlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return litetable.SchemaError("family name cannot be empty")
	}
	if opts.MaxVersions < 0 || opts.TTL < 0 {
		return litetable.ValidationError("family %s: max versions and TTL cannot be negative",
			name)
	}

	t.familyMu.Lock()
	defer t.familyMu.Unlock()

	if _, exists := t.families[name]; exists {
		return litetable.SchemaError("family %s already exists in table %s", name, t.name)
	}

	order := append(slices.Clone(t.familyOrder), name)
	families := maps.Clone(t.families)
	families[name] = opts

	if err := t.saveFamilies(order, families); err != nil {
		return err
	}
	t.familyOrder = order
	t.families = families

	log.Debug().Str("table", t.name).Str("family", name).Int("maxVersions", opts.Versions()).
		Str("ttl", opts.TTL.String()).Msg("column family created")
	return nil
}

// Families returns the declared family names in creation order.
func (t *Table) Families() []string {
	t.familyMu.RLock()
	defer t.familyMu.RUnlock()

	// create a copy of the slice to avoid
	// concurrent read and write issues
	return slices.Clone(t.familyOrder)
}

// familySnapshot returns the current family map. The map is never written after publication.
func (t *Table) familySnapshot() map[string]litetable.FamilyOptions {
	t.familyMu.RLock()
	defer t.familyMu.RUnlock()
	return t.families
}

func (t *Table) checkFamily(families map[string]litetable.FamilyOptions, name string) error {
	if name == "" {
		return litetable.ValidationError("family name cannot be empty")
	}
	if _, ok := families[name]; !ok {
		return litetable.SchemaError("family %s does not exist in table %s", name, t.name)
	}
	return nil
}

func (t *Table) checkFilter(families map[string]litetable.FamilyOptions,
	filter *litetable.Filter) error {
	if filter == nil {
		return nil
	}
	if filter.MaxVersions < 0 {
		return litetable.ValidationError("filter max versions cannot be negative")
	}
	for _, c := range filter.Columns {
		if err := t.checkFamily(families, c.Family); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) saveFamilies(order []string, families map[string]litetable.FamilyOptions) error {
	records := make([]familyRecord, 0, len(order))
	for _, name := range order {
		records = append(records, familyRecord{Name: name, Options: families[name]})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return litetable.IOError(err, "failed to marshal families")
	}

	tmp := t.familiesFile + ".tmp"
	if err = os.WriteFile(tmp, data, 0640); err != nil {
		return litetable.IOError(err, "failed to write families file")
	}
	if err = os.Rename(tmp, t.familiesFile); err != nil {
		_ = os.Remove(tmp)
		return litetable.IOError(err, "failed to replace families file")
	}
	return nil
}

func (t *Table) loadFamilies() error {
	data, err := os.ReadFile(t.familiesFile)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist yet, not an error
			return nil
		}
		return litetable.IOError(err, "failed to read families file")
	}

	var records []familyRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return litetable.IOError(fmt.Errorf("failed to parse %s: %w", t.familiesFile, err),
			"corrupt families file")
	}

	for _, r := range records {
		if _, dup := t.families[r.Name]; dup || r.Name == "" {
			continue
		}
		t.familyOrder = append(t.familyOrder, r.Name)
		t.families[r.Name] = r.Options
	}
	return nil
}
