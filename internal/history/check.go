package history

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/settings-sdk/pkg/extension"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

// Finding is one problem found for a recorded version. Target is set for
// migration findings.
type Finding struct {
	Version types.Version `json:"version" yaml:"version"`
	Target  types.Version `json:"target,omitempty" yaml:"target,omitempty"`
	Problem string        `json:"problem" yaml:"problem"`
}

func (f Finding) String() string {
	if f.Target != "" {
		return fmt.Sprintf("%s -> %s: %s", f.Version, f.Target, f.Problem)
	}
	return fmt.Sprintf("%s: %s", f.Version, f.Problem)
}

// Report is the result of checking an extension against its ledger.
type Report struct {
	Extension string `json:"extension" yaml:"extension"`
	Recorded  int    `json:"recorded" yaml:"recorded"`

	// Unrecorded lists registered versions not yet in the ledger. It is
	// informational and does not fail the check.
	Unrecorded []types.Version `json:"unrecorded,omitempty" yaml:"unrecorded,omitempty"`

	Removed           []types.Version `json:"removed,omitempty" yaml:"removed,omitempty"`
	Mutated           []types.Version `json:"mutated,omitempty" yaml:"mutated,omitempty"`
	Undecodable       []Finding       `json:"undecodable,omitempty" yaml:"undecodable,omitempty"`
	MigrationFailures []Finding       `json:"migration_failures,omitempty" yaml:"migration_failures,omitempty"`
	Gaps              []Finding       `json:"gaps,omitempty" yaml:"gaps,omitempty"`
}

// OK reports whether the check found no problems.
func (r Report) OK() bool {
	return len(r.Removed) == 0 &&
		len(r.Mutated) == 0 &&
		len(r.Undecodable) == 0 &&
		len(r.MigrationFailures) == 0 &&
		len(r.Gaps) == 0
}

// Check compares ext with the ledger. Every recorded version must still be
// registered with an unchanged descriptor. Its recorded defaults must still
// decode and must migrate to every registered version. Defaults recorded as
// partial only take part in the registration checks.
func (l *Ledger) Check(ext *extension.Extension) (Report, error) {
	records, err := l.Versions()
	if err != nil {
		return Report{}, err
	}

	rep := Report{Extension: ext.Name(), Recorded: len(records)}
	infos := ext.Versions()
	seen := make(map[types.Version]bool, len(records))

	for _, rec := range records {
		seen[rec.Version] = true

		m, err := ext.Resolve(rec.Version)
		if err != nil {
			rep.Removed = append(rep.Removed, rec.Version)
			continue
		}
		if m.Fingerprint() != rec.Fingerprint {
			rep.Mutated = append(rep.Mutated, rec.Version)
		}
		if !rec.Complete {
			continue
		}
		if _, err := m.Decode(rec.Defaults); err != nil {
			rep.Undecodable = append(rep.Undecodable, Finding{Version: rec.Version, Problem: err.Error()})
			continue
		}

		for _, info := range infos {
			if info.Version == rec.Version {
				continue
			}
			_, err := ext.Migrate(rec.Defaults, rec.Version, info.Version)
			switch {
			case err == nil:
			case errors.Is(err, types.ErrNoPathFound):
				rep.Gaps = append(rep.Gaps, Finding{Version: rec.Version, Target: info.Version, Problem: err.Error()})
			default:
				rep.MigrationFailures = append(rep.MigrationFailures, Finding{Version: rec.Version, Target: info.Version, Problem: err.Error()})
			}
		}
	}

	for _, info := range infos {
		if !seen[info.Version] {
			rep.Unrecorded = append(rep.Unrecorded, info.Version)
		}
	}
	return rep, nil
}
