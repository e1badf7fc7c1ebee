package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"bloom-client/internal/app"
	"bloom-client/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	adviceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

const terminalHelp = "Type your answer and press enter. Commands: :skip, :recalc, :quit"

// terminal walks a SurveyController with line input.
type terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewScanner(in), out: out}
}

func (t *terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// run drives ctrl until the survey is complete, input ends or the user quits.
func (t *terminal) run(ctx context.Context, ctrl *app.SurveyController) error {
	ctrl.OnComplete(func(p domain.Progress) {
		t.printf("\n%s\n", successStyle.Render(fmt.Sprintf("All %d questions answered. Well done!", p.Total)))
	})
	if err := ctrl.Initialize(ctx); err != nil {
		if errors.Is(err, domain.ErrLoginRequired) {
			return fmt.Errorf("%w: run `bloom login` first", err)
		}
		return err
	}
	t.printf("%s\n", mutedStyle.Render(terminalHelp))

	shown := domain.ID("")
	for {
		s := ctrl.Snapshot()
		if s.Error != "" {
			t.printf("%s\n", errorStyle.Render(s.Error))
			ctrl.DismissError()
		}
		if s.Complete {
			if s.Overview != nil {
				printOverview(t.out, *s.Overview)
			}
			return nil
		}
		if s.Question == nil {
			t.printf("No question is available right now.\n")
			return nil
		}
		if s.Question.ID != shown {
			printQuestion(t.out, s.Question, s.Progress)
			shown = s.Question.ID
		}

		t.printf("> ")
		if !t.in.Scan() {
			t.printf("\n")
			return t.in.Err()
		}
		line := t.in.Text()

		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			return nil
		case ":skip":
			if s.Question.Required {
				t.printf("%s\n", errorStyle.Render("This "+domain.ErrSkipRequired.Error()+"."))
				continue
			}
			ctrl.Skip(ctx)
			continue
		case ":recalc":
			if err := ctrl.Recalculate(ctx); err == nil && ctrl.Snapshot().Overview != nil {
				printOverview(t.out, *ctrl.Snapshot().Overview)
			}
			continue
		case ":help", ":h":
			t.printf("%s\n", mutedStyle.Render(terminalHelp))
			continue
		}

		if msg := applyLine(ctrl, s.Question, line); msg != "" {
			t.printf("%s\n", errorStyle.Render(msg))
			continue
		}
		if !ctrl.CanSubmit() {
			t.printf("%s\n", errorStyle.Render("This question needs an answer before you can continue."))
			continue
		}
		if ctrl.Submit(ctx) == app.NeedsRevision {
			t.printf("%s\n", adviceStyle.Render(ctrl.Snapshot().Advice))
			t.printf("%s\n", mutedStyle.Render(fmt.Sprintf("(%d words, %d characters) Try again:", ctrl.WordCount(), ctrl.CharCount())))
		}
	}
}

// applyLine turns one input line into a draft edit. It returns a message when the line does
// not fit the question.
func applyLine(ctrl *app.SurveyController, q *domain.Question, line string) string {
	switch q.Type {
	case domain.QuestionSingle:
		if strings.TrimSpace(line) == "" {
			ctrl.SelectOption(nil)
			return ""
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(q.Options) {
			return fmt.Sprintf("Choose a number between 1 and %d.", len(q.Options))
		}
		id := q.Options[n-1].ID
		ctrl.SelectOption(&id)
	case domain.QuestionMultiple:
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
		ids := make([]domain.ID, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil || n < 1 || n > len(q.Options) {
				return fmt.Sprintf("Choose numbers between 1 and %d, separated by commas.", len(q.Options))
			}
			ids = append(ids, q.Options[n-1].ID)
		}
		ctrl.SetOptions(ids)
	default:
		ctrl.SetText(line)
	}
	return ""
}

func printQuestion(out io.Writer, q *domain.Question, p domain.Progress) {
	fmt.Fprintf(out, "\n%s\n", mutedStyle.Render(fmt.Sprintf("[%d/%d · %d%%]", p.Answered, p.Total, p.Percent)))
	if c := q.CategoryLabel(); c != "" {
		fmt.Fprintf(out, "%s\n", categoryStyle.Render(c))
	}
	text := q.Text
	if q.Required {
		text += " *"
	}
	fmt.Fprintf(out, "%s\n", titleStyle.Render(text))
	for i, o := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, o.Label)
	}
	switch q.Type {
	case domain.QuestionSingle:
		fmt.Fprintf(out, "%s\n", mutedStyle.Render("Pick one number."))
	case domain.QuestionMultiple:
		fmt.Fprintf(out, "%s\n", mutedStyle.Render("Pick one or more numbers, e.g. 1,3."))
	}
}

func printOverview(out io.Writer, o domain.Overview) {
	fmt.Fprintf(out, "\n%s %d/%d (%d%%)\n", titleStyle.Render("Progress"), o.Progress.Answered, o.Progress.Total, o.Progress.Percent)
	names := make([]string, 0, len(o.Progress.ByCategory))
	for name := range o.Progress.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := o.Progress.ByCategory[name]
		fmt.Fprintf(out, "  %s %d/%d\n", categoryStyle.Render(name), c.Answered, c.Total)
	}
	printTraits(out, "Strengths", o.SelfAnalysis.CombinedPositives)
	printTraits(out, "Growth areas", o.SelfAnalysis.CombinedNegatives)
	if o.SelfAnalysis.Quote != "" {
		fmt.Fprintf(out, "\n  %q\n", o.SelfAnalysis.Quote)
	}
}

func printTraits(out io.Writer, title string, traits map[string]float64) {
	if len(traits) == 0 {
		return
	}
	names := make([]string, 0, len(traits))
	for name := range traits {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if traits[names[i]] != traits[names[j]] {
			return traits[names[i]] > traits[names[j]]
		}
		return names[i] < names[j]
	})
	fmt.Fprintf(out, "%s\n", titleStyle.Render(title))
	for _, name := range names {
		fmt.Fprintf(out, "  %-20s %.2f\n", name, traits[name])
	}
}
