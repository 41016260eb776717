package main

import (
	"fmt"
	"strings"

	"github.com/communehq/commune/internal/apiclient"
	"github.com/communehq/commune/internal/models"
	"github.com/spf13/cobra"
)

var unfollow bool

var followCmd = &cobra.Command{
	Use:   "follow <username>",
	Short: "Follow a neighbour, or stop following with --undo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.requireLogin(); err != nil {
			return err
		}
		user := strings.TrimPrefix(args[0], "@")
		if unfollow {
			if err := cli.client.Unfollow(cmd.Context(), user); err != nil {
				return err
			}
			cli.out.Success("Unfollowed @%s", user)
			return nil
		}
		err := cli.client.Follow(cmd.Context(), user)
		if apiclient.IsConflict(err) {
			cli.out.Info("Already following @%s", user)
			return nil
		}
		if err != nil {
			return err
		}
		cli.out.Success("Following @%s", user)
		return nil
	},
}

var notificationLimit int

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.requireLogin(); err != nil {
			return err
		}
		page, err := cli.client.Notifications(cmd.Context(), notificationLimit)
		if err != nil {
			return err
		}
		return cli.out.Notifications(page)
	},
}

var (
	communityTag  string
	communityMine bool
)

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "Browse communities",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			list []models.Community
			err  error
		)
		if communityMine {
			if err := cli.requireLogin(); err != nil {
				return err
			}
			list, err = cli.client.MyCommunities(cmd.Context())
		} else {
			list, err = cli.client.Communities(cmd.Context(), communityTag, 50, 0)
		}
		if err != nil {
			return err
		}
		return cli.out.Communities(list)
	},
}

var complaint apiclient.Complaint

var complainCmd = &cobra.Command{
	Use:   "complain <post|comment|user> <id>",
	Short: "Report content to the moderators",
	Long: fmt.Sprintf(`File a complaint against a post, comment or user.
Reasons: %s.`, strings.Join(models.ComplaintReasons, ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.requireLogin(); err != nil {
			return err
		}
		c := complaint
		c.TargetType, c.TargetID = args[0], args[1]
		filed, err := cli.client.FileComplaint(cmd.Context(), c)
		if err != nil {
			return err
		}
		if jsonOutput {
			return cli.out.JSON(filed)
		}
		cli.out.Success("Complaint %s filed (%s)", filed.ID, filed.Status)
		return nil
	},
}

func init() {
	followCmd.Flags().BoolVar(&unfollow, "undo", false, "unfollow instead")

	notificationsCmd.Flags().IntVar(&notificationLimit, "limit", 20, "how many to show")

	communitiesCmd.Flags().StringVar(&communityTag, "tag", "", "only communities with this tag")
	communitiesCmd.Flags().BoolVar(&communityMine, "mine", false, "only communities you belong to")

	complainCmd.Flags().StringVar(&complaint.Reason, "reason", "other", "why this is being reported")
	complainCmd.Flags().StringVar(&complaint.Description, "description", "", "details for the moderators")
}
