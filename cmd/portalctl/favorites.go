package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"course-portal/internal/favorites"
)

var (
	favFile string
	favNew  favorites.Favorite
	favOpt  struct {
		description, externalURL, courseID, courseCode, courseName, lectureKey, lectureTitle string
	}
	favQuery   string
	favGrouped bool
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "manage the local favorites list",
}

var favListCmd = &cobra.Command{
	Use:   "list",
	Short: "print saved favorites, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list := openFavorites(cmd)
		items := favorites.Search(list.Items(), favQuery)
		if !favGrouped {
			for _, f := range items {
				printFavorite(cmd, f)
			}
			return nil
		}
		for _, g := range favorites.GroupByCourse(items) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", g.Label, len(g.Items))
			for _, f := range g.Items {
				fmt.Fprint(cmd.OutOrStdout(), "  ")
				printFavorite(cmd, f)
			}
		}
		return nil
	},
}

var favToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "save a resource, or unsave it if already saved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if favNew.ID == "" || favNew.Title == "" {
			return errors.New("--id and --title are required")
		}
		f := favNew
		f.Description = optional(favOpt.description)
		f.ExternalURL = optional(favOpt.externalURL)
		f.CourseID = optional(favOpt.courseID)
		f.CourseCode = optional(favOpt.courseCode)
		f.CourseName = optional(favOpt.courseName)
		f.LectureKey = optional(favOpt.lectureKey)
		f.LectureTitle = optional(favOpt.lectureTitle)

		saved, err := openFavorites(cmd).Toggle(f)
		if err != nil {
			return err
		}
		if saved {
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", f.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", f.ID)
		}
		return nil
	},
}

var favRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "remove one favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return openFavorites(cmd).Remove(args[0])
	},
}

var favClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "remove every favorite",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return openFavorites(cmd).Clear()
	},
}

func init() {
	home, _ := os.UserHomeDir()
	favoritesCmd.PersistentFlags().StringVar(&favFile, "file", filepath.Join(home, ".course-portal", "favorites.json"), "favorites file")

	favListCmd.Flags().StringVarP(&favQuery, "query", "q", "", "filter by title, type, course or lecture")
	favListCmd.Flags().BoolVar(&favGrouped, "grouped", false, "group by course")

	fl := favToggleCmd.Flags()
	fl.StringVar(&favNew.ID, "id", "", "resource id")
	fl.StringVar(&favNew.Title, "title", "", "resource title")
	fl.StringVar(&favNew.Type, "type", "link", "resource type")
	fl.StringVar(&favOpt.description, "description", "", "")
	fl.StringVar(&favOpt.externalURL, "url", "", "external url")
	fl.StringVar(&favOpt.courseID, "course-id", "", "")
	fl.StringVar(&favOpt.courseCode, "course-code", "", "")
	fl.StringVar(&favOpt.courseName, "course-name", "", "")
	fl.StringVar(&favOpt.lectureKey, "lecture-key", "", "")
	fl.StringVar(&favOpt.lectureTitle, "lecture-title", "", "")

	favoritesCmd.AddCommand(favListCmd, favToggleCmd, favRemoveCmd, favClearCmd)
}

func favoritesCap() int {
	if n, err := strconv.Atoi(os.Getenv("FAVORITES_CAP")); err == nil && n > 0 {
		return n
	}
	return favorites.DefaultCap
}

func openFavorites(cmd *cobra.Command) *favorites.List {
	list := favorites.New(favorites.NewFileStore(favFile), favoritesCap())
	list.Subscribe(func(items []favorites.Favorite) {
		fmt.Fprintf(cmd.ErrOrStderr(), "favorites changed: %d saved\n", len(items))
	})
	return list
}

func printFavorite(cmd *cobra.Command, f favorites.Favorite) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", f.ID, f.Type, f.Title, f.SavedAt.Format("2006-01-02 15:04"))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
