package main

import (
	"github.com/spf13/cobra"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

var modelsRecords bool

func init() {
	modelsCmd.Flags().BoolVar(&modelsRecords, "records", false, "List trained model records from the run registry instead")
	rootCmd.AddCommand(modelsCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List trainable model ids and their hyperparameter grids",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

// CatalogEntry describes one trainable model id
type CatalogEntry struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Classifier   string             `json:"classifier"`
	Vectorizer   string             `json:"vectorizer"`
	Combinations int                `json:"combinations"`
	SearchSpace  models.SearchSpace `json:"search_space"`
}

// CatalogListing is the response for the models command
type CatalogListing struct {
	Models  []CatalogEntry    `json:"models"`
	Aliases map[string]string `json:"aliases,omitempty"`
}

func runModels(cmd *cobra.Command, args []string) error {
	if modelsRecords {
		registry, err := openRegistry()
		if err != nil {
			return err
		}
		defer registry.Close()

		records, err := registry.ListModelRecords()
		if err != nil {
			return err
		}
		return outputJSON(records)
	}

	c, err := newCatalog()
	if err != nil {
		return err
	}

	listing := CatalogListing{Aliases: make(map[string]string)}
	for _, id := range c.IDs() {
		mc, err := c.Get(id)
		if err != nil {
			return err
		}
		listing.Models = append(listing.Models, CatalogEntry{
			ID:           id,
			Name:         mc.Name,
			Classifier:   string(mc.Pipeline.Classifier),
			Vectorizer:   string(mc.Pipeline.Vectorizer),
			Combinations: mc.SearchSpace.Size(),
			SearchSpace:  mc.SearchSpace,
		})
	}
	for _, pair := range c.Aliases() {
		listing.Aliases[pair[0]] = pair[1]
	}
	return outputJSON(listing)
}
