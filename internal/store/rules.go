package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonMunkholm/catalogsheet/internal/core"
	"github.com/JonMunkholm/catalogsheet/internal/logging"
)

// Origin tells which rule set a row belongs to.
type Origin string

const (
	OriginCategory Origin = "category"
	OriginAccount  Origin = "account"
)

const categoryRulesSQL = `
SELECT field_path, rule_type, severity, attr_type, payload
FROM attribute_rules
WHERE origin = 'category' AND retailer_id = $1 AND category_id = $2
ORDER BY position, id`

const accountRulesSQL = `
SELECT field_path, rule_type, severity, attr_type, payload
FROM attribute_rules
WHERE origin = 'account' AND supplier_id = $1 AND retailer_id = $2
ORDER BY position, id`

// RuleSource reads one origin of attribute rules. It implements
// core.RuleSource.
type RuleSource struct {
	q      Querier
	origin Origin
}

// NewRuleSource returns a rule source over q.
func NewRuleSource(q Querier, origin Origin) *RuleSource {
	return &RuleSource{q: q, origin: origin}
}

// FetchRules implements core.RuleSource. Rows with an unknown rule type
// are skipped with a warning.
func (s *RuleSource) FetchRules(ctx context.Context, scope core.Scope) ([]core.RuleRecord, error) {
	query, args := categoryRulesSQL, []any{scope.RetailerID, scope.CategoryID}
	if s.origin == OriginAccount {
		query, args = accountRulesSQL, []any{scope.SupplierID, scope.RetailerID}
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s rules: %w", s.origin, err)
	}
	defer rows.Close()

	var out []core.RuleRecord
	for rows.Next() {
		var fieldPath, ruleType, severity, attrType string
		var payload []byte
		if err := rows.Scan(&fieldPath, &ruleType, &severity, &attrType, &payload); err != nil {
			return nil, fmt.Errorf("scan %s rule: %w", s.origin, err)
		}
		rule, err := decodeRule(fieldPath, ruleType, severity, attrType, payload)
		if errors.Is(err, core.ErrUnknownRuleKind) {
			logging.WithScope(ctx, scope.Key()).Warn("skipping rule", "field", fieldPath, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s rules: %w", s.origin, err)
	}
	return out, nil
}

func decodeRule(fieldPath, ruleType, severity, attrType string, payload []byte) (core.RuleRecord, error) {
	kind, err := core.ParseRuleKind(ruleType)
	if err != nil {
		return core.RuleRecord{}, err
	}
	tier := core.TierError
	if severity != "" {
		if tier, err = core.ParseTier(severity); err != nil {
			return core.RuleRecord{}, fmt.Errorf("rule %s on %s: %w", ruleType, fieldPath, err)
		}
	}

	rule := core.RuleRecord{
		FieldPath: fieldPath,
		Type:      kind,
		Severity:  tier,
		AttrType:  core.AttrType(attrType),
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rule.Payload); err != nil {
			return core.RuleRecord{}, fmt.Errorf("rule %s on %s: payload: %w", ruleType, fieldPath, err)
		}
	}
	return rule, nil
}
