package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/brynhild/brynhild/pkg/models"
	"github.com/brynhild/brynhild/pkg/renderer"
)

func buildChatCmd() *cobra.Command {
	var (
		printMode    bool
		jsonMode     bool
		sessionID    string
		providerName string
		model        string
	)

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a message and stream the assistant's reply",
		Long: `Run one conversation turn through the provider, tool, and hook
pipeline. With no prompt argument and an interactive terminal, chat reads
one line at a time until EOF or "exit". With -p, chat runs exactly one
turn non-interactively and never prompts for tool permission.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("")
			if err != nil {
				return err
			}
			if providerName == "" {
				providerName = a.Config.Providers.Default
			}
			if model == "" {
				model = a.Config.Models.Default
			}

			apiKey, hasKey := apiKeyFor(providerName)
			if !hasKey {
				return fmt.Errorf("no API key configured for provider %q", providerName)
			}
			prov, err := newProvider(providerName, apiKey)
			if err != nil {
				return err
			}

			interactive := term.IsTerminal(int(os.Stdin.Fd())) && !printMode && !jsonMode
			var firstPrompt string
			if len(args) == 1 {
				firstPrompt = args[0]
			} else if !interactive {
				data, _ := io.ReadAll(os.Stdin)
				firstPrompt = strings.TrimSpace(string(data))
			}
			if firstPrompt == "" && !interactive {
				return fmt.Errorf("no prompt provided")
			}

			sess, isNew, err := loadOrCreateSession(a, sessionID)
			if err != nil {
				return err
			}
			sess.Model, sess.Provider = model, providerName

			logsDir := expandHome(a.Config.Logging.Dir)
			convlogger, err := openConvlog(logsDir, sess.ID)
			if err != nil {
				return err
			}
			defer convlogger.Close()
			if isNew {
				convlogger.LogSessionStart(sess.ID)
			}

			proc := a.newProcessor(prov)
			proc.Convlog = convlogger

			pctx, err := a.buildPromptContext(convlogger, model, providerName)
			if err != nil {
				return err
			}

			run := func(text string) error {
				var cb renderer.Callbacks
				if jsonMode {
					cb = renderer.NoopCallbacks{Approve: a.Config.Behavior.AutoApprove}
				} else {
					tr := newTermRenderer(nil)
					if printMode {
						tr.interactive = false
					}
					cb = tr
				}
				beforeLen := len(sess.Messages)
				runErr := proc.RunTurn(context.Background(), sess, pctx, text, model, providerName, cb)
				if saveErr := a.Sessions.Save(sess); saveErr != nil && runErr == nil {
					runErr = saveErr
				}
				if jsonMode {
					printJSONTurn(cmd.OutOrStdout(), sess, beforeLen, runErr)
				}
				return runErr
			}

			if firstPrompt != "" {
				if err := run(firstPrompt); err != nil {
					return err
				}
			}

			if interactive {
				if err := runRepl(cmd, run); err != nil {
					return err
				}
			}

			convlogger.LogSessionEnd(sess.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&printMode, "print", "p", false, "Run one turn non-interactively and exit")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Emit the turn's result as a single JSON object instead of streaming text")
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session by id (default: start a new one)")
	cmd.Flags().StringVar(&providerName, "provider", "", "Provider to use (default: config providers.default)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (default: config models.default)")
	return cmd
}

func loadOrCreateSession(a *app, sessionID string) (*models.Session, bool, error) {
	if sessionID != "" {
		if err := models.ValidateSessionID(sessionID); err != nil {
			return nil, false, usageErrorf("invalid session id %q: %w", sessionID, err)
		}
		if a.Sessions.Exists(sessionID) {
			sess, err := a.Sessions.Load(sessionID)
			return sess, false, err
		}
	}
	id := sessionID
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	cwd, _ := os.Getwd()
	return &models.Session{ID: id, CWD: cwd}, true, nil
}

func runRepl(cmd *cobra.Command, run func(string) error) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := run(line); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		}
	}
}

// jsonTurn is the shape emitted by --json: the assistant's final text
// plus every message appended during this turn.
type jsonTurn struct {
	Error    string           `json:"error,omitempty"`
	Messages []models.Message `json:"messages"`
	Final    string           `json:"final_text,omitempty"`
}

func printJSONTurn(out io.Writer, sess *models.Session, beforeLen int, runErr error) {
	turn := jsonTurn{Messages: sess.Messages[beforeLen:]}
	if runErr != nil {
		turn.Error = runErr.Error()
	}
	for i := len(turn.Messages) - 1; i >= 0; i-- {
		if turn.Messages[i].Role == models.RoleAssistant {
			turn.Final = turn.Messages[i].Content
			break
		}
	}
	data, err := json.Marshal(turn)
	if err != nil {
		fmt.Fprintf(out, `{"error":%q}`+"\n", err.Error())
		return
	}
	fmt.Fprintln(out, string(data))
}
