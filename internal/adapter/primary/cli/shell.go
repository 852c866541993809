package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"perfect-volume-control/internal/logging"
)

// inShell is set while the interactive shell runs; the shell's log
// command then owns the log level.
var inShell bool

func newShellCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Cobraサブコマンドを対話的に叩けるシェルを起動",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfig(); err != nil {
				return err
			}
			inShell = true
			defer func() { inShell = false }()
			return runInteractiveShell(prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "volume> ", "シェルのプロンプト文字列")
	return cmd
}

func runInteractiveShell(prompt string) error {
	historyFile := filepath.Join(os.TempDir(), "perfect-volume-control-shell.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("対話型シェルを開始します。'help' で使い方、'exit' で終了。")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println()
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "exit", "quit":
			fmt.Println("Bye!")
			return nil
		case "help":
			printShellHelp(os.Stdout)
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			fmt.Printf("Parse error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "log":
			if err := handleShellLog(tokens[1:], os.Stdout); err != nil {
				fmt.Printf("log: %v\n", err)
			}
			continue
		case "shell":
			fmt.Println("すでにシェル内です。他のコマンドを入力するか 'exit' で終了してください。")
			continue
		case "serve":
			fmt.Println("serve はシェルからは起動できません。別のターミナルで実行してください。")
			continue
		}

		if err := executeArgs(tokens); err != nil {
			fmt.Printf("command error: %v\n", err)
		}
	}
}

func executeArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	keep := cfgPath
	root := NewRootCmd()
	root.SetArgs(append(args, "--config", keep))
	return root.Execute()
}

func handleShellLog(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("log", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	var show bool
	fs.CountVarP(&vcount, "verbose", "v", "Increase verbosity (-v... up to 4)")
	fs.StringVar(&level, "level", "", "指定レベル(error|warn|info|debug|trace)")
	fs.BoolVarP(&show, "show", "s", false, "現在のレベルを表示")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case level != "":
		if _, err := logging.SetLevel(level); err != nil {
			return err
		}
	case vcount > 0:
		logging.SetVerbosity(vcount)
	default:
		fmt.Fprintf(out, "log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	}

	fmt.Fprintf(out, "log level set to %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, `利用可能な入力例:
  get                         # 現在の出力音量を表示
  set 0.4                     # 出力音量を設定
  set 40%                     # パーセントでも指定可能
  hide / show                 # 音量HUDを隠す / 戻す
  watch                       # 音量変更イベントを監視 (Ctrl-Cで戻る)
  config get                  # 設定を確認
  log -vv                     # ログ出力を詳細化
  log --level debug           # レベルを直接指定
  log --show                  # 現在のログレベルを確認
  exit / quit                 # シェル終了`)
}
