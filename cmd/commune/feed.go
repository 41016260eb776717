package main

import (
	"fmt"
	"strings"

	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/cli/output"
	"github.com/communehq/commune/internal/models"
	"github.com/spf13/cobra"
)

var feedQuery apiclient.FeedQuery

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show a feed of posts",
	Long: `Show posts, newest first. --kind selects the feed: global (default),
following, community (needs --community) or hashtag (needs --hashtag).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := feedQuery
		switch {
		case q.Hashtag != "":
			q.Kind = "hashtag"
		case q.CommunityID != "":
			q.Kind = "community"
		}
		if q.Kind == "following" {
			if err := cli.requireLogin(); err != nil {
				return err
			}
		}
		page, err := cli.client.Feed(cmd.Context(), q)
		if err != nil {
			return err
		}
		return cli.out.Feed(page)
	},
}

var commentsCmd = &cobra.Command{
	Use:   "comments <post-id>",
	Short: "Print a post's comment thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, err := cli.client.CommentTree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.out.Thread(roots)
	},
}

var replyTo string

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>",
	Short: "Comment on a post, or reply to a comment with --reply-to",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.requireLogin(); err != nil {
			return err
		}
		content := strings.Join(args[1:], " ")
		c, err := cli.client.CreateComment(cmd.Context(), args[0], content, replyTo)
		if err != nil {
			return err
		}
		if jsonOutput {
			return cli.out.JSON(c)
		}
		cli.out.Success("Comment %s added", c.ID)
		return nil
	},
}

var (
	reactTarget string
	reactUndo   bool
)

var reactCmd = &cobra.Command{
	Use:   "react <id> [kind]",
	Short: "React to a post or comment",
	Long: fmt.Sprintf(`Set your reaction on a post (or a comment with --on comment).
Kinds: %s. One reaction per target; reacting again replaces it.
--undo removes your reaction.`, strings.Join(models.ReactionKinds, ", ")),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.requireLogin(); err != nil {
			return err
		}
		if reactTarget != models.TargetPost && reactTarget != models.TargetComment {
			return fmt.Errorf("--on must be %q or %q", models.TargetPost, models.TargetComment)
		}

		var (
			counts map[string]int
			err    error
		)
		if reactUndo {
			counts, err = cli.client.Unreact(cmd.Context(), reactTarget, args[0])
		} else {
			kind := models.ReactionLike
			if len(args) == 2 {
				kind = args[1]
			}
			if !models.ValidReactionKind(kind) {
				return fmt.Errorf("unknown reaction %q", kind)
			}
			counts, err = cli.client.React(cmd.Context(), reactTarget, args[0], kind)
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return cli.out.JSON(counts)
		}
		cli.out.Success("Reactions: %s", orNone(output.Reactions(counts)))
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	feedCmd.Flags().StringVar(&feedQuery.Kind, "kind", "global", "global, following, community or hashtag")
	feedCmd.Flags().StringVar(&feedQuery.CommunityID, "community", "", "community id or slug")
	feedCmd.Flags().StringVar(&feedQuery.Hashtag, "hashtag", "", "hashtag, with or without #")
	feedCmd.Flags().IntVar(&feedQuery.Limit, "limit", 20, "posts per page")
	feedCmd.Flags().IntVar(&feedQuery.Offset, "offset", 0, "skip this many posts")

	commentCmd.Flags().StringVar(&replyTo, "reply-to", "", "id of the comment being answered")

	reactCmd.Flags().StringVar(&reactTarget, "on", models.TargetPost, "target type: post or comment")
	reactCmd.Flags().BoolVar(&reactUndo, "undo", false, "remove your reaction")
}
