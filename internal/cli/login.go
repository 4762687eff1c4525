package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginUser     string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the client API and print a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		password := loginPassword
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("read password failed: %w", err)
			}
			password = string(raw)
		}

		body, err := json.Marshal(map[string]string{
			"user_id":  loginUser,
			"password": password,
		})
		if err != nil {
			return fmt.Errorf("encode request failed: %w", err)
		}

		client := &http.Client{Timeout: 10 * time.Second}
		url := fmt.Sprintf("http://%s/auth/login", cfg.ClientAddr())
		resp, err := client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("login request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response failed: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
				return fmt.Errorf("login failed: %s", apiErr.Error)
			}
			return fmt.Errorf("login failed: status %d", resp.StatusCode)
		}

		var ok struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(data, &ok); err != nil {
			return fmt.Errorf("decode response failed: %w", err)
		}
		fmt.Println(ok.Token)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <token>",
	Short: "Revoke a previously issued token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		url := fmt.Sprintf("http://%s/auth/logout", cfg.ClientAddr())
		req, err := http.NewRequest(http.MethodPost, url, nil)
		if err != nil {
			return fmt.Errorf("build request failed: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+args[0])

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("logout request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("logout failed: status %d", resp.StatusCode)
		}
		fmt.Println("logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginUser, "u", "", "user id to authenticate as")
	loginCmd.Flags().StringVar(&loginPassword, "p", "", "password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("u")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
