package app

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/agentstation/oztfix/pkg/constants"
	"github.com/agentstation/oztfix/pkg/metadata"
)

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", constants.AppName, a.version)
			fmt.Fprintf(out, "  commit:   %s\n", a.commit)
			fmt.Fprintf(out, "  built:    %s\n", a.date)
			fmt.Fprintf(out, "  built by: %s\n", a.builtBy)
			return nil
		},
	}
}

// lookup is the printable view of one identifier in the metadata.
type lookup struct {
	ID       string           `yaml:"id"`
	Kind     string           `yaml:"kind"`
	Expected int              `yaml:"expected_titles,omitempty"`
	Fields   []metadata.Field `yaml:"fields,omitempty"`
}

// NewMetadataCommand creates the metadata command, which loads the tables
// and prints their counts or the records of the given identifiers.
func (a *App) NewMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata [ids...]",
		Short: "Load the metadata tables and show counts or records",
		Long: `Load the metadata tables under --datadir and print how many titles,
curated titles and dependent titles they contain. With identifiers, print
the record of each document or embedded title instead.`,
		RunE: func(cmd *cobra.Command, ids []string) error {
			store, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}

			var out any = store.Stats()
			if len(ids) > 0 {
				out = lookups(store, ids)
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func lookups(store *metadata.Store, ids []string) []lookup {
	out := make([]lookup, 0, len(ids))
	for _, id := range ids {
		if rec, ok := store.LookupDocument(id); ok {
			out = append(out, lookup{ID: id, Kind: "document", Expected: store.ExpectedCount(id), Fields: rec.Fields()})
			continue
		}
		if rec, ok := store.LookupEmbeddedTitle(id); ok {
			out = append(out, lookup{ID: id, Kind: "embedded-title", Fields: rec.Fields()})
			continue
		}
		out = append(out, lookup{ID: id, Kind: "unknown"})
	}
	return out
}
