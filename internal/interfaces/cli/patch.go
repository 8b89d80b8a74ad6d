package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j/repositories"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

type itemRepo = repositories.SyntaxRepository[*syntax.Item]

// patchFunc applies one patch once the repository is open.
type patchFunc func(ctx context.Context, repo *itemRepo, uid string, args []string) error

func newPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Replace the optional relationships and flags of a root",
	}

	sets := []struct {
		use   string
		short string
		cap   syntax.Capability
	}{
		{"indications", "Replace the indications of a root", syntax.CapIndication},
		{"categories", "Replace the categories of a root", syntax.CapCategory},
		{"subcategories", "Replace the subcategories of a root", syntax.CapSubcategory},
		{"activities", "Replace the activities of a root", syntax.CapActivity},
		{"activity-groups", "Replace the activity groups of a root", syntax.CapActivityGroup},
		{"activity-subgroups", "Replace the activity subgroups of a root", syntax.CapActivitySubgroup},
	}
	for _, s := range sets {
		c := s.cap
		cmd.AddCommand(patchSubcommand(s.use+" TYPE UID [TARGET_UID...]", s.short, cobra.MinimumNArgs(2),
			func(ctx context.Context, repo *itemRepo, uid string, targets []string) error {
				return repo.ReplaceRelationshipSet(ctx, uid, c, targets)
			}))
	}

	cmd.AddCommand(
		patchSubcommand("type TYPE UID [TYPE_UID]", "Set or clear the type term of a template", cobra.RangeArgs(2, 3),
			func(ctx context.Context, repo *itemRepo, uid string, rest []string) error {
				typeUID := ""
				if len(rest) > 0 {
					typeUID = rest[0]
				}
				return repo.PatchType(ctx, uid, typeUID)
			}),
		patchSubcommand("confirmatory-testing TYPE UID true|false|null", "Set the confirmatory testing flag", cobra.ExactArgs(3),
			func(ctx context.Context, repo *itemRepo, uid string, rest []string) error {
				v, err := parseOptionalBool(rest[0])
				if err != nil {
					return err
				}
				return repo.PatchIsConfirmatoryTesting(ctx, uid, v)
			}),
		patchSubcommand("sequence-id TYPE UID SEQUENCE_ID", "Set the sequence id of a root", cobra.ExactArgs(3),
			func(ctx context.Context, repo *itemRepo, uid string, rest []string) error {
				return repo.PatchSequenceID(ctx, uid, rest[0])
			}),
	)
	return cmd
}

func patchSubcommand(use, short string, args cobra.PositionalArgs, apply patchFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
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
			if err := apply(ctx, repo, args[1], args[2:]); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%s %s patched", repo.Descriptor().Type, args[1]))
			return nil
		},
	}
}

// parseOptionalBool maps "null" and "none" to nil.
func parseOptionalBool(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null", "none":
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.InvalidParam(fmt.Sprintf("expected true, false or null, got %q", s))
	}
	return &b, nil
}
