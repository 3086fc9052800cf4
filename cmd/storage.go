package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthall00/wikiscroll/internal/browser"
	"github.com/matthall00/wikiscroll/internal/config"
	"github.com/matthall00/wikiscroll/internal/store"
)

var flagHistoryClear bool

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		db := store.New(config.StorePath(), zap.NewNop())
		defer db.Close()

		articles, err := db.SavedArticles()
		if err != nil {
			return fmt.Errorf("reading saved articles: %w", err)
		}
		if len(articles) == 0 {
			fmt.Println("No saved articles.")
			return nil
		}
		for _, a := range articles {
			fmt.Printf("%s\n    %s\n", a.Title, browser.ArticleURL(cfg.Lang(), a.ID))
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently viewed articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := store.New(config.StorePath(), zap.NewNop())
		defer db.Close()

		if flagHistoryClear {
			if err := db.ClearHistory(); err != nil {
				return fmt.Errorf("clearing history: %w", err)
			}
			fmt.Println("History cleared.")
			return nil
		}

		articles, err := db.History()
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if len(articles) == 0 {
			fmt.Println("No history yet.")
			return nil
		}
		for _, a := range articles {
			fmt.Printf("%s  %s\n", a.ViewedAt.Local().Format("2006-01-02 15:04"), a.Title)
		}
		return nil
	},
}

var interestsCmd = &cobra.Command{
	Use:   "interests",
	Short: "List interests weighting the random feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := store.New(config.StorePath(), zap.NewNop())
		defer db.Close()

		interests, err := db.Interests()
		if err != nil {
			return fmt.Errorf("reading interests: %w", err)
		}
		if len(interests) == 0 {
			fmt.Println("No interests set. The feed is plain random.")
			return nil
		}
		for _, i := range interests {
			fmt.Println(i.Name)
		}
		return nil
	},
}

var interestsAddCmd = &cobra.Command{
	Use:   "add <topic>",
	Short: "Add an interest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := store.New(config.StorePath(), zap.NewNop())
		defer db.Close()

		if err := db.AddInterest(args[0]); err != nil {
			return fmt.Errorf("adding interest: %w", err)
		}
		fmt.Printf("Added %q.\n", args[0])
		return nil
	},
}

var interestsRemoveCmd = &cobra.Command{
	Use:   "remove <topic>",
	Short: "Remove an interest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := store.New(config.StorePath(), zap.NewNop())
		defer db.Close()

		if err := db.RemoveInterest(args[0]); err != nil {
			return fmt.Errorf("removing interest: %w", err)
		}
		fmt.Printf("Removed %q.\n", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := config.StorePath()
		db := store.New(dbPath, zap.NewNop())
		defer db.Close()

		saved, history, size, err := db.Stats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Printf("Store: %s\n", dbPath)
		fmt.Printf("Saved: %d\n", saved)
		fmt.Printf("History: %d\n", history)
		fmt.Printf("Size: %s\n", formatBytes(size))
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "clear the view history")
	interestsCmd.AddCommand(interestsAddCmd)
	interestsCmd.AddCommand(interestsRemoveCmd)
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
