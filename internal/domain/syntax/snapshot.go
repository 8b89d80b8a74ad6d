package syntax

import (
	"context"
	"reflect"

	apperrors "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Snapshot is an immutable copy of the row an aggregate was built from,
// taken when the aggregate was retrieved for update.
type Snapshot struct {
	in AggregateInput
}

// NewSnapshot deep-copies in.
func NewSnapshot(in AggregateInput) Snapshot {
	return Snapshot{in: in.Clone()}
}

// Input returns a deep copy of the captured row.
func (s Snapshot) Input() AggregateInput {
	return s.in.Clone()
}

// UID is the uid of the captured root.
func (s Snapshot) UID() string { return s.in.Root.UID }

// Diff returns the names of the top-level parts of current that differ from
// the captured row, in a fixed order.
func (s Snapshot) Diff(current AggregateInput) []string {
	var changed []string
	check := func(name string, a, b any) {
		if !sameContent(a, b) {
			changed = append(changed, name)
		}
	}
	base := s.in
	check("library", base.Library, current.Library)
	check("root", rootComparable(base.Root), rootComparable(current.Root))
	check("value", valueComparable(base.Value), valueComparable(current.Value))
	check("version", versionComparable(base.Version), versionComparable(current.Version))
	check("indications", base.Indications, current.Indications)
	check("categories", base.Categories, current.Categories)
	check("sub_categories", base.Subcategories, current.Subcategories)
	check("activities", base.Activities, current.Activities)
	check("activity_groups", base.ActivityGroups, current.ActivityGroups)
	check("activity_subgroups", base.ActivitySubgroups, current.ActivitySubgroups)
	check("type", base.TemplateType, current.TemplateType)
	check("template", base.Template, current.Template)
	return changed
}

func sameContent(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Slice && vb.Kind() == reflect.Slice && va.Len() == 0 && vb.Len() == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func rootComparable(r Root) Root {
	r.ElementID = ""
	r.Labels = nil
	return r
}

func valueComparable(v Value) Value {
	v.ElementID = ""
	return v
}

func versionComparable(v VersionInfo) VersionInfo {
	v.StartDate = v.StartDate.UTC()
	if v.EndDate != nil {
		e := v.EndDate.UTC()
		v.EndDate = &e
	}
	return v
}

// Mutability tells whether a retrieved aggregate may be persisted.
type Mutability int

const (
	// ReadOnly results must never be saved back.
	ReadOnly Mutability = iota
	// ForUpdate results were read under a root lock and carry a baseline.
	ForUpdate
)

func (m Mutability) String() string {
	if m == ForUpdate {
		return "for_update"
	}
	return "read_only"
}

// Closure is the repository bookkeeping kept beside a retrieved aggregate.
type Closure struct {
	Mode           Mutability
	RootElementID  string
	ValueElementID string
	LibraryName    string
	Baseline       *Snapshot
	// Release frees an advisory lock taken for update, if any.
	Release func(ctx context.Context) error
}

// Retrieved pairs an aggregate with its closure.
type Retrieved[T any] struct {
	Aggregate T
	Closure   Closure
}

// IsReadOnly reports whether r carries the read-only marker.
func (r *Retrieved[T]) IsReadOnly() bool {
	return r.Closure.Mode == ReadOnly
}

// Baseline returns the snapshot captured at lock time.
func (r *Retrieved[T]) Baseline() (Snapshot, bool) {
	if r.Closure.Baseline == nil {
		return Snapshot{}, false
	}
	return *r.Closure.Baseline, true
}

// RequireWritable fails for read-only results.
func (r *Retrieved[T]) RequireWritable() error {
	if r.IsReadOnly() {
		return apperrors.BusinessLogic("Retrieved object is read-only and cannot be persisted.")
	}
	return nil
}

// Release frees the advisory lock held by r, if any.
func (r *Retrieved[T]) Release(ctx context.Context) error {
	if r.Closure.Release == nil {
		return nil
	}
	release := r.Closure.Release
	r.Closure.Release = nil
	return release(ctx)
}

func errUnknownType(t EntityType) error {
	return apperrors.Newf(apperrors.ErrCodeUnknownKind, "no descriptor registered for %s", t)
}
