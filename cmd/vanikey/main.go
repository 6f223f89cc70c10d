// Package main provides the vanikey CLI tool for mining password-encrypted
// Ethereum keystores whose address starts with a chosen prefix.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/complex-gh/vanikey"
	"github.com/kelseyhightower/envconfig"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	lang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	maxWidth = 72
)

var (
	baseStyle = lipgloss.NewStyle().Margin(0, 0, 1, 2) //nolint:mnd
	red       = lipgloss.Color(completeColor("#FF4444", "196", "9"))
	green     = lipgloss.Color(completeColor("#04B575", "42", "2"))

	errorStyle = baseStyle.
			Foreground(red).
			Background(lipgloss.AdaptiveColor{Light: completeColor("#FFEBEB", "255", "7"), Dark: completeColor("#2B1A1A", "235", "8")}).
			Padding(1, 2) //nolint:mnd

	successStyle = baseStyle.
			Foreground(green).
			Background(lipgloss.AdaptiveColor{Light: completeColor("#E8FFF3", "255", "7"), Dark: completeColor("#1A2B22", "235", "8")}).
			Padding(1, 2) //nolint:mnd

	workers     int
	reportEvery uint64
	lightKDF    bool
	hdMode      bool
	language    string
	external    string

	// defaults are the flag defaults, overridable from the environment
	// before flags are parsed.
	defaults struct {
		Workers     int    `envconfig:"VANIKEY_WORKERS" default:"1"`
		ReportEvery uint64 `envconfig:"VANIKEY_REPORT_EVERY" default:"10"`
		External    string `envconfig:"VANIKEY_EXTERNAL" default:""`
		LightKDF    bool   `envconfig:"VANIKEY_LIGHT_KDF" default:"false"`
	}

	rootCmd = &cobra.Command{
		Use:   "vanikey <target-prefix> <directory> <password>",
		Short: "Find a password-encrypted keystore with a matching address prefix",
		Long: `Find a password-encrypted Ethereum keystore whose address starts with the
target prefix.

The search generates one encrypted keystore per attempt in the output
directory, checks the derived address against the prefix, and deletes the
file again on a mismatch. When it hits, exactly one keystore remains: the
accepted one, encrypted under the given password. The prefix is "0x"
followed by an even number of hex digits and is matched case-insensitively;
every two digits multiply the expected attempt count by 256.

A password of "-" is read interactively from the terminal instead.

SECURITY TIP: Add a space before the command to prevent the password from
being saved in your shell history. For example:
    vanikey 0xff ./keys hunter2
   ^ (note the leading space)
Most shells (bash, zsh) are configured to ignore commands that start
with a space. Check your HISTCONTROL or HIST_IGNORE_SPACE settings.`,
		Example: `  vanikey 0xff ./keys hunter2
  vanikey 0xc0ffee ./keys - --workers 8 --light-kdf
  vanikey 0xff ./keys - --hd --language en
  vanikey 0xabcd ./keys hunter2 --external cast
  vanikey odds 0xc0ffee`,
		Args: cobra.ExactArgs(3), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, dir, password := args[0], args[1], args[2]
			if prefix == "" || dir == "" || password == "" {
				return fmt.Errorf("target prefix, directory and password must not be empty")
			}
			prefixBytes, err := vanikey.ParsePrefix(prefix)
			if err != nil {
				return err
			}

			// Arguments are accepted; failures past this point are
			// runtime failures and should not dump usage.
			cmd.SilenceUsage = true

			if password == "-" {
				pass, err := askPassword()
				if err != nil {
					return err
				}
				password = string(pass)
				if password == "" {
					return fmt.Errorf("password must not be empty")
				}
			}

			// The search deletes rejected keystores inside dir on every
			// attempt, so refuse to start against a missing directory.
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("could not open output directory: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("output path %s is not a directory", dir)
			}

			var (
				gen     vanikey.KeyGenerator
				genName string
				hd      *vanikey.HDGenerator
			)
			switch {
			case external != "":
				cast := vanikey.NewCastGenerator(external)
				// Verify the capability before the first attempt.
				if err := cast.Check(); err != nil {
					return err
				}
				gen, genName = cast, external
			case hdMode:
				if err := setLanguage(language); err != nil {
					return err
				}
				mnemonic, err := vanikey.NewMnemonic()
				if err != nil {
					return err
				}
				hd, err = vanikey.NewHDGenerator(mnemonic, lightKDF)
				if err != nil {
					return err
				}
				gen, genName = hd, "hd"
			default:
				gen, genName = vanikey.NewGethGenerator(lightKDF), "geth"
			}

			logger := newLogger()
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("searching for matching keystore",
				zap.String("prefix", "0x"+hex.EncodeToString(prefixBytes)),
				zap.String("directory", dir),
				zap.String("generator", genName),
				zap.Int("workers", workers),
				zap.Float64("expected_attempts", math.Pow(16, float64(len(prefixBytes)*2))), //nolint:mnd
			)

			res, err := vanikey.Find(ctx, gen, vanikey.Options{
				Prefix:      prefix,
				Dir:         dir,
				Password:    password,
				Workers:     workers,
				ReportEvery: reportEvery,
				Logger:      logger,
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return formatCanceled()
				}
				return err
			}

			printSummary(res, hd)
			return nil
		},
	}

	oddsCmd = &cobra.Command{
		Use:   "odds <target-prefix>",
		Short: "Show the expected attempt count for a prefix",
		Long: `Show the expected number of attempts for a target prefix.

Keystore addresses are uniformly distributed, so a prefix of N hex digits
matches one address in 16^N on average. Every attempt pays the full key
generation and encryption cost, which makes long prefixes expensive fast.`,
		Example: `  vanikey odds 0xff
  vanikey odds 0xc0ffee`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := vanikey.ParsePrefix(args[0])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			digits := len(prefix) * 2 //nolint:mnd
			expected := math.Pow(16, float64(digits))
			fmt.Printf("prefix:            0x%x (%d hex digits)\n", prefix, digits)
			fmt.Printf("expected attempts: %s\n", humanCount(expected))
			fmt.Println()
			fmt.Println("at sustained attempt rates:")
			for _, rate := range []float64{1, 10, 100, 1000} {
				fmt.Printf("  %6.0f/s: %s\n", rate, humanDuration(expected/rate))
			}
			return nil
		},
	}

	manCmd = &cobra.Command{
		Use:          "man",
		Args:         cobra.NoArgs,
		Short:        "generate man pages",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			manPage, err := mcobra.NewManPage(1, rootCmd)
			if err != nil {
				//nolint: wrapcheck
				return err
			}
			manPage = manPage.WithSection("Copyright", "(C) 2025 complex (complex@ft.hn)\n"+
				"Released under MIT license.")
			fmt.Println(manPage.Build(roff.NewDocument()))
			return nil
		},
	}

	// completionCmd generates shell completion scripts for bash, zsh, fish, and powershell.
	completionCmd = &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for vanikey.

To load completions:

Bash:
  $ source <(vanikey completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ vanikey completion bash > /etc/bash_completion.d/vanikey
  # macOS:
  $ vanikey completion bash > $(brew --prefix)/etc/bash_completion.d/vanikey

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ vanikey completion zsh > "${fpath[1]}/_vanikey"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ vanikey completion fish | source

  # To load completions for each session, execute once:
  $ vanikey completion fish > ~/.config/fish/completions/vanikey.fish

PowerShell:
  PS> vanikey completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> vanikey completion powershell > vanikey.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		SilenceUsage:          true,
		RunE: func(_ *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unknown shell: %s", args[0])
			}
		},
	}
)

func init() {
	if err := envconfig.Process("", &defaults); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	rootCmd.Flags().IntVarP(&workers, "workers", "j", defaults.Workers, "Number of concurrent search workers")
	rootCmd.Flags().Uint64Var(&reportEvery, "report-every", defaults.ReportEvery, "Log progress every N attempts (0 disables)")
	rootCmd.Flags().BoolVar(&lightKDF, "light-kdf", defaults.LightKDF, "Encrypt keystores with geth's light scrypt parameters")
	rootCmd.Flags().BoolVar(&hdMode, "hd", false, "Derive candidates from a fresh BIP39 mnemonic so the accepted key is recoverable from the phrase")
	rootCmd.Flags().StringVarP(&language, "language", "l", "en", "Mnemonic language for --hd")
	rootCmd.Flags().StringVar(&external, "external", defaults.External, "Generate keystores with an external cast-compatible binary")
	rootCmd.MarkFlagsMutuallyExclusive("hd", "external")

	rootCmd.AddCommand(oddsCmd)
	rootCmd.AddCommand(manCmd)
	rootCmd.AddCommand(completionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the progress logger. LOG_FORMAT=json selects zap's
// production config, anything else a colored development config written to
// stderr, and LOG_LEVEL overrides the level. Stdout stays reserved for the
// final summary.
func newLogger() *zap.Logger {
	var cfg zap.Config
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if level, err := zapcore.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// printSummary reports the accepted keystore on stdout. For an HD search the
// derivation path and mnemonic are included, as they are the only way to
// recreate the key without the file.
func printSummary(res *vanikey.Result, hd *vanikey.HDGenerator) {
	rate := ""
	if s := res.Elapsed.Seconds(); s > 0 {
		rate = fmt.Sprintf(" (%.1f/s)", float64(res.Attempts)/s)
	}
	lines := []string{
		fmt.Sprintf("address:  %s", res.Address.Hex()),
		fmt.Sprintf("keystore: %s", res.Path),
		fmt.Sprintf("attempts: %d in %s%s", res.Attempts, res.Elapsed.Round(time.Millisecond), rate),
	}
	if hd != nil {
		if i, ok := hd.IndexOf(res.Address); ok {
			lines = append(lines, fmt.Sprintf("path:     %s/%d", vanikey.DerivationBase, i))
		}
		lines = append(lines, fmt.Sprintf("mnemonic: %s", hd.Mnemonic()))
	}
	body := strings.Join(lines, "\n")

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(body)
		return
	}

	b := strings.Builder{}
	w := getWidth(maxWidth)

	b.WriteRune('\n')
	renderBlock(&b, successStyle, w, body)
	b.WriteRune('\n')

	fmt.Print(b.String())
}

// formatCanceled reports an interrupted search with the same styling as
// other terminal output. It returns a simple error so the command exits
// with a non-zero code.
func formatCanceled() error {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		b := strings.Builder{}
		w := getWidth(maxWidth)

		b.WriteRune('\n')
		renderBlock(&b, errorStyle, w, "Search canceled. All candidate keystores were removed; nothing was kept.")
		b.WriteRune('\n')

		fmt.Print(b.String())
	}
	return fmt.Errorf("search canceled before a match was found")
}

// humanCount renders an expected attempt count at a precision that matches
// how rough the estimate is.
func humanCount(n float64) string {
	switch {
	case n < 1e3:
		return fmt.Sprintf("%.0f", n)
	case n < 1e6:
		return fmt.Sprintf("%.1f thousand", n/1e3)
	case n < 1e9:
		return fmt.Sprintf("%.1f million", n/1e6)
	case n < 1e12:
		return fmt.Sprintf("%.1f billion", n/1e9)
	default:
		return fmt.Sprintf("%.3g", n)
	}
}

// humanDuration renders a duration estimate in the largest sensible unit.
func humanDuration(seconds float64) string {
	const (
		minute = 60
		hour   = 60 * minute
		day    = 24 * hour
		year   = 365 * day
	)
	switch {
	case seconds < 1:
		return "under a second"
	case seconds < 2*minute:
		return fmt.Sprintf("%.0f seconds", seconds)
	case seconds < 2*hour:
		return fmt.Sprintf("%.0f minutes", seconds/minute)
	case seconds < 2*day:
		return fmt.Sprintf("%.0f hours", seconds/hour)
	case seconds < 2*year:
		return fmt.Sprintf("%.0f days", seconds/day)
	default:
		return fmt.Sprintf("%.1f years", seconds/year)
	}
}

func getWidth(maxw int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint: gosec
	if err != nil || w > maxw {
		return maxWidth
	}
	return w
}

func renderBlock(w io.Writer, s lipgloss.Style, width int, str string) {
	_, _ = io.WriteString(w, s.Width(width).Render(str))
	_, _ = io.WriteString(w, "\n")
}

func completeColor(truecolor, ansi256, ansi string) string {
	//nolint: exhaustive
	switch lipgloss.ColorProfile() {
	case termenv.TrueColor:
		return truecolor
	case termenv.ANSI256:
		return ansi256
	}
	return ansi
}

// setLanguage sets the language of the bip39 mnemonic words used by --hd.
func setLanguage(language string) error {
	list := getWordlist(language)
	if list == nil {
		return fmt.Errorf("this language is not supported")
	}
	bip39.SetWordList(list)
	return nil
}

func sanitizeLang(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

var wordLists = map[lang.Tag][]string{
	lang.Chinese:              wordlists.ChineseSimplified,
	lang.SimplifiedChinese:    wordlists.ChineseSimplified,
	lang.TraditionalChinese:   wordlists.ChineseTraditional,
	lang.Czech:                wordlists.Czech,
	lang.AmericanEnglish:      wordlists.English,
	lang.BritishEnglish:       wordlists.English,
	lang.English:              wordlists.English,
	lang.French:               wordlists.French,
	lang.Italian:              wordlists.Italian,
	lang.Japanese:             wordlists.Japanese,
	lang.Korean:               wordlists.Korean,
	lang.Spanish:              wordlists.Spanish,
	lang.EuropeanSpanish:      wordlists.Spanish,
	lang.LatinAmericanSpanish: wordlists.Spanish,
}

func getWordlist(language string) []string {
	language = sanitizeLang(language)
	tag := lang.Make(language)
	en := display.English.Languages() // default language name matcher
	for t := range wordLists {
		if sanitizeLang(en.Name(t)) == language {
			tag = t
			break
		}
	}
	if tag == lang.Und { // Unknown language
		return nil
	}
	base, _ := tag.Base()
	btag := lang.MustParse(base.String())
	wl := wordLists[tag]
	if wl == nil {
		return wordLists[btag]
	}
	return wl
}

func readPassword(msg string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, msg)
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open tty: %w", err)
	}
	defer t.Close()                                     //nolint: errcheck
	pass, err := term.ReadPassword(int(t.Input().Fd())) //nolint: gosec
	if err != nil {
		return nil, fmt.Errorf("could not read password: %w", err)
	}
	return pass, nil
}

func askPassword() ([]byte, error) {
	defer fmt.Fprintf(os.Stderr, "\n")
	return readPassword("Enter the keystore password: ")
}
