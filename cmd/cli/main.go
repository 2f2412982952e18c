// Command formsync is a CLI client for the formsync service.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	pkgcrypto "github.com/and161185/formsync/internal/crypto"
	"github.com/and161185/formsync/internal/model"
	httpserver "github.com/and161185/formsync/internal/server/http"
	"github.com/and161185/formsync/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type globals struct {
	addr    string
	timeout time.Duration
}

func (g *globals) client(authed bool) (*client, error) {
	tok := ""
	if authed {
		var err error
		if tok, err = loadToken(); err != nil {
			return nil, err
		}
	}
	return newClient(g.addr, tok, g.timeout), nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

// parseProducts accepts a bare array or a {"products": [...]} document.
func parseProducts(b []byte) ([]model.ProductInput, error) {
	var items []model.ProductInput
	if err := json.Unmarshal(b, &items); err == nil {
		return items, nil
	}
	var doc httpserver.PushRequest
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("products file: %w", err)
	}
	return doc.Products, nil
}

// findUser matches login against username or email, ignoring case.
func findUser(users []model.User, login string) (model.User, bool) {
	login = strings.TrimSpace(login)
	for _, u := range users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			return u, true
		}
	}
	return model.User{}, false
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "formsync",
		Short:         "formsync client: login, sync and offline credential checks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addr := os.Getenv("FORMSYNC_ADDR")
	if addr == "" {
		addr = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&g.addr, "addr", addr, "server base URL")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		versionCmd(),
		loginCmd(g),
		pullCmd(g),
		pushCmd(g),
		usersCmd(g),
		offlineLoginCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "formsync %s (%s)\n", version, buildDate)
		},
	}
}

func loginCmd(g *globals) *cobra.Command {
	var user, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _ := g.client(false)
			var resp httpserver.LoginResponse
			err := c.do(cmd.Context(), http.MethodPost, "/login",
				httpserver.LoginRequest{Username: user, Password: password}, &resp)
			if err != nil {
				return err
			}
			if err := saveToken(resp.Token, resp.ExpiresAt); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s), token valid until %s\n",
				resp.User.Username, resp.User.RoleName, resp.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func pullCmd(g *globals) *cobra.Command {
	var since string
	var full bool
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download products and users changed since the last pull",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.client(true)
			if err != nil {
				return err
			}
			if since == "" && !full {
				if since, err = loadLastSync(); err != nil {
					return err
				}
			}
			var res service.PullResult
			if err := c.do(cmd.Context(), http.MethodPost, "/sync", httpserver.PullRequest{LastSync: since}, &res); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), res)
			return saveLastSync(res.SyncTime)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "RFC3339 watermark (default: stored state)")
	cmd.Flags().BoolVar(&full, "full", false, "ignore the stored watermark")
	return cmd
}

func pushCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload product rows; negative ids are created on the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.client(true)
			if err != nil {
				return err
			}
			b, err := readAll(file)
			if err != nil {
				return err
			}
			items, err := parseProducts(b)
			if err != nil {
				return err
			}
			var res service.PushResult
			if err := c.do(cmd.Context(), http.MethodPost, "/sync/push", httpserver.PushRequest{Products: items}, &res); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), res)
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d of %d items failed", len(res.Errors), len(res.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "products JSON file, - for stdin")
	return cmd
}

func usersCmd(g *globals) *cobra.Command {
	var cache bool
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users; --cache stores credentials for offline login (administrators)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.client(true)
			if err != nil {
				return err
			}
			var all []model.User
			for page := 1; ; page++ {
				var list httpserver.UserList
				path := fmt.Sprintf("/users?page=%d&limit=100&includePassword=%t", page, cache)
				if err := c.do(cmd.Context(), http.MethodGet, path, nil, &list); err != nil {
					return err
				}
				all = append(all, list.Users...)
				if page >= list.Pagination.TotalPages {
					break
				}
			}
			if cache {
				if err := saveUsers(all); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cached %d users\n", len(all))
				return nil
			}
			public := make([]model.User, len(all))
			for i, u := range all {
				public[i] = u.Public()
			}
			printJSON(cmd.OutOrStdout(), public)
			return nil
		},
	}
	cmd.Flags().BoolVar(&cache, "cache", false, "store users with offline digests")
	return cmd
}

func offlineLoginCmd() *cobra.Command {
	var user, password string
	cmd := &cobra.Command{
		Use:   "offline-login",
		Short: "Verify credentials against the cached offline digest, without network access",
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := loadUsers()
			if err != nil {
				return fmt.Errorf("no cached users (run users --cache): %w", err)
			}
			u, ok := findUser(users, user)
			if !ok || u.OfflineDigest == "" || !pkgcrypto.VerifyOffline(password, u.OfflineDigest) {
				return errors.New("invalid credentials")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "offline login ok: %s\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// main runs the command tree and exits non-zero on failure.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
