// Package standardize maintains a consistent mapping from raw, free-text lab
// test names to a smaller set of canonical names, incrementally, across
// independent extraction runs. Grouping decisions come from the reasoning
// service; previously established mappings are replayed as authoritative
// context so resolved names never drift between runs.
package standardize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
	"github.com/joseph-ayodele/labresults-tracker/internal/llm"
)

// Engine reconciles unmapped raw names in a collection against the accumulated
// canonical-name mappings. It never retries; callers own retry policy. A
// failed reconcile leaves the collection exactly as it was.
//
// The engine requires exclusive access to the collection it mutates: at most
// one Reconcile per collection at a time.
type Engine struct {
	grouper llm.NameGrouper
	logger  *slog.Logger
}

func NewEngine(grouper llm.NameGrouper, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{grouper: grouper, logger: logger}
}

// Reconcile assigns canonical names to the collection's unmapped records.
//
// Matching is by trimmed, case-folded raw name. A no-op when nothing is
// unmapped. Raw names whose mapping is already known are resolved locally
// without consulting the service; the service is only asked about genuinely
// new names, with the known mappings as context. Corrections naming a raw
// name absent from the collection are ignored.
func (e *Engine) Reconcile(ctx context.Context, collection *entity.Collection) error {
	start := time.Now()

	unmapped := collection.UnmappedNames()
	if len(unmapped) == 0 {
		e.logger.Debug("standardize.reconcile.noop", "records", collection.Len())
		return nil
	}
	known := collection.KnownMappings()

	// Resolve locally where a known mapping already covers the raw name.
	knownByRaw := make(map[string]string, len(known))
	for _, m := range known {
		knownByRaw[entity.NormalizeTestName(m.RawName)] = m.CanonicalName
	}
	var novel []string
	corrections := map[string]string{}
	for _, raw := range unmapped {
		if canonical, ok := knownByRaw[entity.NormalizeTestName(raw)]; ok {
			corrections[raw] = canonical
		} else {
			novel = append(novel, raw)
		}
	}

	e.logger.Info("standardize.reconcile.start",
		"unmapped", len(unmapped),
		"known_mappings", len(known),
		"novel", len(novel),
	)

	if len(novel) > 0 {
		decided, err := e.groupNovelNames(ctx, known, novel)
		if err != nil {
			return err
		}
		// Known mappings win over service output; a grouped name must not
		// displace an established canonical form.
		for raw, canonical := range decided {
			if existing, ok := knownByRaw[entity.NormalizeTestName(raw)]; ok && existing != canonical {
				e.logger.Warn("standardize.reconcile.drift_rejected",
					"raw_name", raw, "kept", existing, "proposed", canonical)
				continue
			}
			corrections[raw] = canonical
		}
	}

	updated := collection.ApplyCorrections(corrections)
	e.logger.Info("standardize.reconcile.ok",
		"corrections", len(corrections),
		"records_updated", updated,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// groupNovelNames asks the reasoning service to group the novel raw names and
// parses the response all-or-nothing: a malformed or conflicting entry fails
// the whole call so a partial parse can never leave the mapping inconsistent.
func (e *Engine) groupNovelNames(ctx context.Context, known []entity.Mapping, novel []string) (map[string]string, error) {
	req := make([]llm.KnownMapping, len(known))
	for i, m := range known {
		req[i] = llm.KnownMapping{CanonicalName: m.CanonicalName, RawName: m.RawName}
	}

	decisions, err := e.grouper.GroupNames(ctx, req, novel)
	if err != nil {
		return nil, common.NewAppError("STANDARDIZATION_ERROR", "grouping call failed", fmt.Errorf("%w: %w", common.ErrStandardization, err))
	}
	if len(decisions) == 0 {
		return nil, common.NewAppError("STANDARDIZATION_ERROR", "grouping response empty when names were expected", common.ErrStandardization)
	}

	out := make(map[string]string, len(decisions))
	for _, d := range decisions {
		if d.RawName == "" || d.CanonicalName == "" {
			return nil, common.NewAppError("STANDARDIZATION_ERROR",
				fmt.Sprintf("malformed correction entry %+v", d), common.ErrStandardization)
		}
		if prev, ok := out[d.RawName]; ok && prev != d.CanonicalName {
			return nil, common.NewAppError("STANDARDIZATION_ERROR",
				fmt.Sprintf("conflicting corrections for %q", d.RawName), common.ErrStandardization)
		}
		out[d.RawName] = d.CanonicalName
	}
	return out, nil
}
