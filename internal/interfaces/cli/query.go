package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// itemTable renders aggregates one per row.
type itemTable []*syntax.Item

func (t itemTable) TableHeaders() []string {
	return []string{"UID", "NAME", "STATUS", "VERSION", "LIBRARY", "STUDIES"}
}

func (t itemTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, it := range t {
		rows = append(rows, []string{
			it.UID,
			it.NamePlain,
			string(it.Version.Status),
			it.Version.Version,
			it.Library.Name,
			strconv.Itoa(it.StudyCount),
		})
	}
	return rows
}

// printItem prints a single aggregate as an object, or as a one-row table.
func printItem(cmd *cobra.Command, it *syntax.Item) error {
	if cc, err := GetCLIContext(cmd); err == nil && cc.OutputFormat == OutputTable {
		return PrintResult(cmd, itemTable{it})
	}
	return PrintResult(cmd, it)
}

// pageView is a list result.
type pageView struct {
	Items []*syntax.Item `json:"items" yaml:"items"`
	Total int            `json:"total" yaml:"total"`
}

func (p pageView) TableHeaders() []string { return itemTable(p.Items).TableHeaders() }
func (p pageView) TableRows() [][]string  { return itemTable(p.Items).TableRows() }

func parseStatus(s string) (syntax.Status, error) {
	if s == "" {
		return "", nil
	}
	st, err := syntax.ParseStatus(s)
	if err != nil {
		return "", errors.InvalidParam(err.Error())
	}
	return st, nil
}

// parseSort reads "field" or "field:asc|desc" specs.
func parseSort(specs []string) ([]syntax.SortField, error) {
	out := make([]syntax.SortField, 0, len(specs))
	for _, spec := range specs {
		field, dir, _ := strings.Cut(spec, ":")
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, errors.InvalidParam(fmt.Sprintf("empty sort field in %q", spec))
		}
		sf := syntax.SortField{Field: field, Ascending: true}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			sf.Ascending = false
		default:
			return nil, errors.InvalidParam(fmt.Sprintf("sort direction must be asc or desc, got %q", dir))
		}
		out = append(out, sf)
	}
	return out, nil
}

// parseFilter decodes a JSON filter such as {"name":{"v":["x"],"op":"co"}}.
func parseFilter(raw string) (syntax.FilterBy, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var fb syntax.FilterBy
	if err := json.Unmarshal([]byte(raw), &fb); err != nil {
		return nil, errors.InvalidParam(fmt.Sprintf("filter must be a JSON object: %v", err))
	}
	return fb, nil
}

func parseFilterOperator(s string) (syntax.FilterOperator, error) {
	op, err := syntax.ParseFilterOperator(s)
	if err != nil {
		return "", errors.InvalidParam(err.Error())
	}
	return op, nil
}

type fetchFlags struct {
	library    string
	status     string
	version    string
	studyCount bool
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.library, "library", "", "only accept roots owned by this library")
	cmd.Flags().StringVar(&f.status, "status", "", "version status (Draft, Final, Retired)")
	cmd.Flags().StringVar(&f.version, "version", "", "exact version number")
	cmd.Flags().BoolVar(&f.studyCount, "study-count", false, "count the studies using each result")
}

func (f *fetchFlags) options() (syntax.FetchOptions, error) {
	st, err := parseStatus(f.status)
	if err != nil {
		return syntax.FetchOptions{}, err
	}
	return syntax.FetchOptions{
		LibraryName:      f.library,
		Status:           st,
		Version:          f.version,
		ReturnStudyCount: f.studyCount,
	}, nil
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the entity types and what each one carries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return PrintResult(cmd, describeKinds())
		},
	}
}

type kindRow struct {
	Type         string   `json:"type" yaml:"type"`
	RootLabel    string   `json:"root_label" yaml:"root_label"`
	ValueLabel   string   `json:"value_label" yaml:"value_label"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
}

type kindTable []kindRow

func (t kindTable) TableHeaders() []string {
	return []string{"TYPE", "ROOT", "VALUE", "CAPABILITIES"}
}

func (t kindTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, k := range t {
		rows = append(rows, []string{k.Type, k.RootLabel, k.ValueLabel, strings.Join(k.Capabilities, ",")})
	}
	return rows
}

func describeKinds() kindTable {
	descs := syntax.Descriptors()
	out := make(kindTable, 0, len(descs))
	for _, d := range descs {
		caps := syntax.CapabilitiesOf(d).List()
		names := make([]string, 0, len(caps))
		for _, c := range caps {
			names = append(names, c.String())
		}
		out = append(out, kindRow{
			Type:         d.Type.String(),
			RootLabel:    d.RootLabel,
			ValueLabel:   d.ValueLabel,
			Capabilities: names,
		})
	}
	return out
}

func newGetCmd() *cobra.Command {
	var ff fetchFlags
	var forUpdate bool
	cmd := &cobra.Command{
		Use:   "get TYPE UID",
		Short: "Fetch the latest matching version of one root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			opts, err := ff.options()
			if err != nil {
				return err
			}
			opts.ForUpdate = forUpdate

			repo, err := itemRepository(ctx, cc, args[0])
			if err != nil {
				return err
			}
			got, err := repo.FetchByUID(ctx, args[1], opts)
			if err != nil {
				return err
			}
			defer func() {
				if rerr := got.Release(ctx); rerr != nil {
					cc.Logger.Warn("failed to release lock", logging.String("uid", args[1]), logging.Err(rerr))
				}
			}()
			return printItem(cmd, got.Aggregate)
		},
	}
	ff.register(cmd)
	cmd.Flags().BoolVar(&forUpdate, "for-update", false, "lock the root while fetching it")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var ff fetchFlags
	cmd := &cobra.Command{
		Use:   "history TYPE UID",
		Short: "List every version of one root, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			opts, err := ff.options()
			if err != nil {
				return err
			}
			repo, err := itemRepository(ctx, cc, args[0])
			if err != nil {
				return err
			}
			versions, err := repo.FetchHistory(ctx, args[1], opts)
			if err != nil {
				return err
			}
			items := make(itemTable, 0, len(versions))
			for _, v := range versions {
				items = append(items, v.Aggregate)
			}
			return PrintResult(cmd, items)
		},
	}
	ff.register(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		status, library, filter, filterOp string
		sortBy                            []string
		page, pageSize                    int
		total, auditTrail, studyCount     bool
	)
	cmd := &cobra.Command{
		Use:   "list TYPE",
		Short: "List one page of roots with their latest matching version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			sorts, err := parseSort(sortBy)
			if err != nil {
				return err
			}
			fb, err := parseFilter(filter)
			if err != nil {
				return err
			}
			op, err := parseFilterOperator(filterOp)
			if err != nil {
				return err
			}

			repo, err := itemRepository(ctx, cc, args[0])
			if err != nil {
				return err
			}
			res, err := repo.List(ctx, syntax.ListOptions{
				Status:           st,
				LibraryName:      library,
				ReturnStudyCount: studyCount,
				SortBy:           sorts,
				PageNumber:       page,
				PageSize:         pageSize,
				FilterBy:         fb,
				FilterOperator:   op,
				TotalCount:       total,
				ForAuditTrail:    auditTrail,
			})
			if err != nil {
				return err
			}
			items := make([]*syntax.Item, 0, len(res.Items))
			for _, it := range res.Items {
				items = append(items, it.Aggregate)
			}
			return PrintResult(cmd, pageView{Items: items, Total: res.TotalCount})
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "version status (Draft, Final, Retired)")
	f.StringVar(&library, "library", "", "only roots owned by this library")
	f.StringVar(&filter, "filter", "", `JSON filter, e.g. {"name":{"v":["pain"],"op":"co"}}`)
	f.StringVar(&filterOp, "filter-operator", "and", "join named filters with and|or")
	f.StringSliceVar(&sortBy, "sort", nil, "sort by field[:asc|desc], repeatable")
	f.IntVar(&page, "page", 1, "1-based page number")
	f.IntVar(&pageSize, "page-size", 10, "page size, 0 for every match")
	f.BoolVar(&total, "total", false, "count every match")
	f.BoolVar(&auditTrail, "audit-trail", false, "list every version instead of the latest")
	f.BoolVar(&studyCount, "study-count", false, "count the studies using each result")
	return cmd
}

func newHeadersCmd() *cobra.Command {
	var (
		status, search, filter, filterOp string
		count                            int
	)
	cmd := &cobra.Command{
		Use:   "headers TYPE FIELD",
		Short: "List distinct values of one field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			fb, err := parseFilter(filter)
			if err != nil {
				return err
			}
			op, err := parseFilterOperator(filterOp)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") && cc.Config.Repository.HeaderResultCount > 0 {
				count = cc.Config.Repository.HeaderResultCount
			}

			repo, err := itemRepository(ctx, cc, args[0])
			if err != nil {
				return err
			}
			values, err := repo.ListDistinctHeaderValues(ctx, syntax.HeaderOptions{
				FieldName:      args[1],
				Status:         st,
				SearchString:   search,
				FilterBy:       fb,
				FilterOperator: op,
				ResultCount:    count,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, values)
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "version status (Draft, Final, Retired)")
	f.StringVar(&search, "search", "", "substring the values must contain")
	f.StringVar(&filter, "filter", "", "JSON filter applied before collecting values")
	f.StringVar(&filterOp, "filter-operator", "and", "join named filters with and|or")
	f.IntVar(&count, "count", 10, "maximum number of values")
	return cmd
}

// parameterTable renders one row per position of each value set.
type parameterTable syntax.ParameterTermsBySet

func (t parameterTable) TableHeaders() []string {
	return []string{"SET", "POSITION", "PARAMETER", "VALUES"}
}

func (t parameterTable) TableRows() [][]string {
	sets := make([]int, 0, len(t))
	for s := range t {
		sets = append(sets, s)
	}
	sort.Ints(sets)

	var rows [][]string
	for _, s := range sets {
		for i, e := range t[s] {
			row := []string{strconv.Itoa(s), strconv.Itoa(i + 1)}
			switch v := e.(type) {
			case syntax.ParameterTermEntry:
				names := make([]string, 0, len(v.Terms))
				for _, term := range v.Terms {
					names = append(names, term.Value)
				}
				row = append(row, v.ParameterName, strings.Join(names, " "+v.Conjunction+" "))
			case syntax.ComplexParameterTerm:
				row = append(row, v.ParameterTemplate, v.UID)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func newParameterTermsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parameter-terms TYPE UID",
		Short: "Show the parameter values chosen for each template position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			repo, err := itemRepository(ctx, cc, args[0])
			if err != nil {
				return err
			}
			terms, err := repo.GetParameterTermsByPosition(ctx, args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, parameterTable(terms))
		},
	}
}

type templateTypeView struct {
	UID     string `json:"uid" yaml:"uid"`
	TypeUID string `json:"type_uid" yaml:"type_uid"`
}

func (v templateTypeView) TableHeaders() []string { return []string{"UID", "TYPE_UID"} }
func (v templateTypeView) TableRows() [][]string  { return [][]string{{v.UID, v.TypeUID}} }

func newTemplateTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template-type TYPE UID",
		Short: "Resolve the type term of a root or of its generating template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			repo, err := itemRepository(ctx, cc, args[0])
			if err != nil {
				return err
			}
			typeUID, err := repo.GetTemplateTypeUID(ctx, args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, templateTypeView{UID: args[1], TypeUID: typeUID})
		},
	}
}
