package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// PatchIndications replaces the indications of the root with uid.
func (r *SyntaxRepository[T]) PatchIndications(ctx context.Context, uid string, termUIDs []string) error {
	return r.ReplaceRelationshipSet(ctx, uid, syntax.CapIndication, termUIDs)
}

// PatchCategories replaces the categories of the root with uid.
func (r *SyntaxRepository[T]) PatchCategories(ctx context.Context, uid string, termUIDs []string) error {
	return r.ReplaceRelationshipSet(ctx, uid, syntax.CapCategory, termUIDs)
}

// PatchSubcategories replaces the sub-categories of the root with uid.
func (r *SyntaxRepository[T]) PatchSubcategories(ctx context.Context, uid string, termUIDs []string) error {
	return r.ReplaceRelationshipSet(ctx, uid, syntax.CapSubcategory, termUIDs)
}

func (r *SyntaxRepository[T]) PatchActivities(ctx context.Context, uid string, activityUIDs []string) error {
	return r.ReplaceRelationshipSet(ctx, uid, syntax.CapActivity, activityUIDs)
}

func (r *SyntaxRepository[T]) PatchActivityGroups(ctx context.Context, uid string, groupUIDs []string) error {
	return r.ReplaceRelationshipSet(ctx, uid, syntax.CapActivityGroup, groupUIDs)
}

func (r *SyntaxRepository[T]) PatchActivitySubgroups(ctx context.Context, uid string, subgroupUIDs []string) error {
	return r.ReplaceRelationshipSet(ctx, uid, syntax.CapActivitySubgroup, subgroupUIDs)
}

// PatchType points the root at a single type term. An empty typeUID
// removes the type.
func (r *SyntaxRepository[T]) PatchType(ctx context.Context, uid, typeUID string) error {
	var uids []string
	if typeUID != "" {
		uids = []string{typeUID}
	}
	return r.ReplaceRelationshipSet(ctx, uid, syntax.CapType, uids)
}

// ReplaceRelationshipSet swaps every outgoing relationship of capability c
// on the root with uid for one relationship per target uid. Nothing is
// written unless the root and every target exist.
func (r *SyntaxRepository[T]) ReplaceRelationshipSet(ctx context.Context, uid string, c syntax.Capability, targetUIDs []string) (err error) {
	target, ok := syntax.TargetFor(c)
	if !ok || !r.desc.Declared.Has(c) {
		return errors.BusinessLogic(fmt.Sprintf("%s does not support %s relationships.", r.desc.Type, c))
	}
	start := time.Now()
	uids := dedupe(targetUIDs)
	defer func() { r.observe(OpPatch, start, len(uids), err) }()

	params := map[string]any{"uid": uid, "uids": uids}
	_, err = r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		if err := r.requireRoot(ctx, tx, uid); err != nil {
			return nil, err
		}
		if len(uids) > 0 {
			if err := requireTargets(ctx, tx, target, uids); err != nil {
				return nil, err
			}
		}
		del := fmt.Sprintf("MATCH (root:%s {uid: $uid})-[rel:%s]->()\nDELETE rel", r.desc.RootLabel, target.Rel)
		if _, err := tx.Run(ctx, del, params); err != nil {
			return nil, err
		}
		if len(uids) == 0 {
			return nil, nil
		}
		create := fmt.Sprintf(`MATCH (root:%s {uid: $uid})
UNWIND $uids AS target_uid
MATCH (target:%s {uid: target_uid})
MERGE (root)-[:%s]->(target)`, r.desc.RootLabel, target.TargetLabel, target.Rel)
		_, err := tx.Run(ctx, create, params)
		return nil, err
	})
	if err == nil {
		r.log.Info("relationship set replaced",
			logging.String("uid", uid), logging.String("relationship", target.Rel), logging.Int("targets", len(uids)))
	}
	return err
}

// PatchIsConfirmatoryTesting sets or clears the confirmatory testing flag.
func (r *SyntaxRepository[T]) PatchIsConfirmatoryTesting(ctx context.Context, uid string, value *bool) error {
	if !r.desc.Declared.Has(syntax.CapConfirmatoryTesting) {
		return errors.BusinessLogic(fmt.Sprintf("%s does not support is_confirmatory_testing.", r.desc.Type))
	}
	var v any
	if value != nil {
		v = *value
	}
	return r.setRootProperty(ctx, uid, "is_confirmatory_testing", v)
}

// PatchSequenceID sets the sequence id of the root with uid.
func (r *SyntaxRepository[T]) PatchSequenceID(ctx context.Context, uid, sequenceID string) error {
	if strings.TrimSpace(sequenceID) == "" {
		return errors.Validation("sequence_id must not be empty.")
	}
	return r.setRootProperty(ctx, uid, "sequence_id", sequenceID)
}

func (r *SyntaxRepository[T]) setRootProperty(ctx context.Context, uid, prop string, value any) (err error) {
	start := time.Now()
	defer func() { r.observe(OpPatch, start, 1, err) }()

	query := fmt.Sprintf("MATCH (root:%s {uid: $uid})\nSET root.%s = $value\nRETURN root.uid AS uid", r.desc.RootLabel, prop)
	_, err = r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"uid": uid, "value": value})
		if err != nil {
			return nil, err
		}
		return driver.ExtractSingleRecord(ctx, res, uidColumn)
	})
	if errors.IsNotFound(err) {
		return r.rootNotFound(uid)
	}
	return err
}

func (r *SyntaxRepository[T]) requireRoot(ctx context.Context, tx driver.Transaction, uid string) error {
	query := fmt.Sprintf("MATCH (root:%s {uid: $uid})\nRETURN root.uid AS uid", r.desc.RootLabel)
	res, err := tx.Run(ctx, query, map[string]any{"uid": uid})
	if err != nil {
		return err
	}
	if _, err := driver.ExtractSingleRecord(ctx, res, uidColumn); err != nil {
		if errors.IsNotFound(err) {
			return r.rootNotFound(uid)
		}
		return err
	}
	return nil
}

func (r *SyntaxRepository[T]) rootNotFound(uid string) error {
	return errors.NotFound(fmt.Sprintf("%s with UID '%s' doesn't exist.", r.desc.Type, uid))
}

func requireTargets(ctx context.Context, tx driver.Transaction, target syntax.RelationshipTarget, uids []string) error {
	query := fmt.Sprintf(`UNWIND $uids AS target_uid
OPTIONAL MATCH (target:%s {uid: target_uid})
RETURN target_uid AS uid, target IS NOT NULL AS found`, target.TargetLabel)
	res, err := tx.Run(ctx, query, map[string]any{"uids": uids})
	if err != nil {
		return err
	}
	missing, err := driver.CollectRecords(ctx, res, func(rec *neo4j.Record) (string, error) {
		found, _ := rec.Get("found")
		if ok, _ := found.(bool); ok {
			return "", nil
		}
		u, _ := rec.Get("uid")
		return stringOf(u), nil
	})
	if err != nil {
		return err
	}
	var names []string
	for _, m := range missing {
		if m != "" {
			names = append(names, m)
		}
	}
	if len(names) > 0 {
		return errors.Newf(errors.ErrCodeRelatedNotFound, "%s with UIDs [%s] don't exist.",
			target.TargetLabel, strings.Join(names, ", "))
	}
	return nil
}

func uidColumn(rec *neo4j.Record) (string, error) {
	v, _ := rec.Get("uid")
	return stringOf(v), nil
}

func dedupe(uids []string) []string {
	out := make([]string, 0, len(uids))
	seen := make(map[string]struct{}, len(uids))
	for _, u := range uids {
		if _, ok := seen[u]; ok || u == "" {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
