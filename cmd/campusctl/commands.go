package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"campusfeed/pkg/client"

	"github.com/spf13/cobra"
)

func (a *app) registerCmd() *cobra.Command {
	var nickname string
	cmd := &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nickname == "" {
				nickname = args[0]
			}
			u, err := a.api.Register(cmd.Context(), args[0], args[1], nickname)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %d), now run campusctl login\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "Display name (defaults to the username)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> [password]",
		Short: "Log in and store the session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 2 {
				password = args[1]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}

			u, err := a.api.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", u.Username, html.UnescapeString(u.Nickname))
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.api.Logout()
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.api.Profile(cmd.Context())
			if err != nil {
				return explain(err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s) id=%d\n", u.Username, html.UnescapeString(u.Nickname), u.ID)
			if u.School != "" || u.Major != "" {
				fmt.Fprintf(w, "%s %s %s\n", u.School, u.Major, u.Grade)
			}
			if u.Bio != "" {
				fmt.Fprintln(w, html.UnescapeString(u.Bio))
			}
			if u.UnreadMessages > 0 {
				fmt.Fprintf(w, "%d unread messages\n", u.UnreadMessages)
			}
			return nil
		},
	}
}

func (a *app) feedCmd() *cobra.Command {
	var (
		userID    uint
		favorites bool
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				posts []*client.Post
				err   error
			)
			switch {
			case favorites:
				posts, err = a.api.Favorites(cmd.Context())
			case userID != 0:
				posts, err = a.api.UserPosts(cmd.Context(), userID)
			default:
				posts, err = a.api.Feed(cmd.Context())
			}
			if err != nil {
				return explain(err)
			}
			for _, p := range posts {
				printPost(cmd, p)
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "Only posts by this user id")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Posts you liked")
	return cmd
}

func printPost(cmd *cobra.Command, p *client.Post) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "#%d %s @%s  %s", p.ID, html.UnescapeString(p.Nickname), p.Username, p.CreatedAt.Local().Format(time.DateTime))
	if p.Location != "" {
		fmt.Fprintf(w, "  [%s]", html.UnescapeString(p.Location))
	}
	if p.Visibility == "private" {
		fmt.Fprint(w, "  (private)")
	}
	fmt.Fprintf(w, "\n  %s\n", html.UnescapeString(p.Content))
	if p.ImageURL != "" {
		fmt.Fprintf(w, "  image: %s\n", p.ImageURL)
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a post with its likes and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, err := a.api.Post(ctx, id)
			if err != nil {
				return explain(err)
			}
			likes, err := a.api.Likes(ctx, id)
			if err != nil {
				return explain(err)
			}
			comments, err := a.api.Comments(ctx, id)
			if err != nil {
				return explain(err)
			}

			printPost(cmd, p)
			w := cmd.OutOrStdout()
			liked := ""
			if likes.IsLiked {
				liked = " (you liked this)"
			}
			fmt.Fprintf(w, "  %d likes%s, %d comments\n", likes.LikeCount, liked, comments.Count)
			for _, c := range comments.List {
				fmt.Fprintf(w, "    %s: %s\n", html.UnescapeString(c.Nickname), html.UnescapeString(c.Content))
			}
			return nil
		},
	}
}

func (a *app) postCmd() *cobra.Command {
	var location, visibility, imagePath string
	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Publish a post",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := client.PublishInput{
				Content:    strings.Join(args, " "),
				Location:   location,
				Visibility: visibility,
			}
			if imagePath != "" {
				f, err := os.Open(imagePath)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in.Image = f
				in.ImageName = filepath.Base(imagePath)
			}

			p, err := a.api.Publish(cmd.Context(), in)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published post #%d\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Where you are")
	cmd.Flags().StringVar(&visibility, "visibility", "public", "public or private")
	cmd.Flags().StringVar(&imagePath, "image", "", "JPEG, PNG or GIF to attach")
	return cmd
}

func (a *app) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like a post, or unlike it if you already do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := a.api.ToggleLike(cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s, %d likes\n", res.Action, res.LikeCount)
			return nil
		},
	}
}

func (a *app) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <text>",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.api.AddComment(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "comment #%d added\n", c.ID)
			return nil
		},
	}
}

func (a *app) chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chats, err := a.api.Chats(cmd.Context())
			if err != nil {
				return explain(err)
			}
			w := cmd.OutOrStdout()
			for _, c := range chats {
				unread := ""
				if c.UnreadCount > 0 {
					unread = fmt.Sprintf(" [%d unread]", c.UnreadCount)
				}
				fmt.Fprintf(w, "%d %s%s  %s\n  %s\n", c.ChatUserID, html.UnescapeString(c.Nickname), unread,
					c.LastMessageTime.Local().Format(time.DateTime), html.UnescapeString(c.LastMessage))
			}
			return nil
		},
	}
}

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <user-id>",
		Short: "Show a conversation and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			msgs, err := a.api.Conversation(cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			for _, m := range msgs {
				printMessage(cmd, m)
			}
			return nil
		},
	}
}

func printMessage(cmd *cobra.Command, m *client.Message) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", m.CreatedAt.Local().Format(time.TimeOnly),
		html.UnescapeString(m.SenderNickname), html.UnescapeString(m.Content))
}

func (a *app) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <user-id> <text>",
		Short: "Send a direct message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.api.Send(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent message #%d\n", m.ID)
			return nil
		},
	}
}

func (a *app) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <user-id>",
		Short: "Mark a conversation as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := a.api.MarkRead(cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d messages marked read\n", n)
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print incoming messages as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Validates the session and refreshes an expired access token before dialing.
			if _, err := a.api.Profile(cmd.Context()); err != nil {
				return explain(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "watching for messages, Ctrl-C to stop")
			return a.api.Watch(ctx, func(ev client.Event) {
				switch ev.Type {
				case client.EventMessageNew:
					var m client.Message
					if err := json.Unmarshal(ev.Payload, &m); err == nil {
						printMessage(cmd, &m)
					}
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "(%s) refresh with campusctl chats\n", ev.Type)
				}
			})
		},
	}
}
