package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/services"
)

var meetingCmd = &cobra.Command{
	Use:   "meeting",
	Short: "Manage meeting notes and todos",
}

var meetingAddCmd = &cobra.Command{
	Use:   "add [contact-id]",
	Short: "Record a meeting with a contact",
	Long: `Record a meeting with a contact.

Todos may carry a due date after a "|" separator.

Examples:
  rolodex meeting add 000001 --date 2024-05-01 --content "Intro call"
  rolodex meeting add 000001 --todo "Send deck|2024-05-08" --todo "Book follow-up"`,
	Args: cobra.ExactArgs(1),
	RunE: runMeetingAdd,
}

var meetingListCmd = &cobra.Command{
	Use:   "list [contact-id]",
	Short: "List meetings, or open todos with --pending",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMeetingList,
}

var meetingDeleteCmd = &cobra.Command{
	Use:   "delete [meeting-id]",
	Short: "Delete a meeting",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeetingDelete,
}

var meetingDoneCmd = &cobra.Command{
	Use:   "done [meeting-id] [todo-number]",
	Short: "Mark a todo as completed",
	Long: `Mark a todo as completed. Todos are numbered from 1 in the order they
were recorded, as shown by 'rolodex meeting list --pending'.`,
	Args: cobra.ExactArgs(2),
	RunE: runMeetingDone,
}

// Flags for meeting commands.
var (
	meetingAddDate    string
	meetingAddContent string
	meetingAddTodos   []string
	meetingListOpen   bool
	meetingDoneUndo   bool
)

func init() {
	meetingAddCmd.Flags().StringVar(&meetingAddDate, "date", "", "Meeting date, YYYY-MM-DD or YYYY-MM-DDTHH:MM (default today)")
	meetingAddCmd.Flags().StringVar(&meetingAddContent, "content", "", "Meeting notes")
	meetingAddCmd.Flags().StringArrayVar(&meetingAddTodos, "todo", nil, `Follow-up todo, optionally "text|YYYY-MM-DD" (repeatable)`)

	meetingListCmd.Flags().BoolVar(&meetingListOpen, "pending", false, "List open todos instead of meetings")
	meetingDoneCmd.Flags().BoolVar(&meetingDoneUndo, "undo", false, "Mark the todo as open again")

	meetingCmd.AddCommand(meetingAddCmd)
	meetingCmd.AddCommand(meetingListCmd)
	meetingCmd.AddCommand(meetingDeleteCmd)
	meetingCmd.AddCommand(meetingDoneCmd)
	rootCmd.AddCommand(meetingCmd)
}

func runMeetingAdd(cmd *cobra.Command, args []string) error {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	c, err := repo.GetContact(args[0])
	if err != nil {
		return err
	}

	date := meetingAddDate
	if date == "" {
		date = time.Now().Format(domain.DateLayout)
	}
	m := domain.Meeting{ContactID: c.ID, Date: date, Content: meetingAddContent}
	for _, raw := range meetingAddTodos {
		m.Todos = append(m.Todos, parseTodo(raw))
	}

	added, err := repo.AddMeeting(m)
	if err != nil {
		return fmt.Errorf("failed to add meeting: %w", err)
	}
	if err := s.Workspace.SaveContact(cmd.Context(), c.ID); err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}

	return render(cmd, added, func(w io.Writer, st *styles) {
		fmt.Fprintf(w, "%s %s with %s on %s\n", st.Success.Render("Added meeting"), added.ID, c.Name, added.Date)
	})
}

// parseTodo splits "text|due" into a todo.
func parseTodo(raw string) domain.Todo {
	text, due, _ := strings.Cut(raw, "|")
	return domain.Todo{Text: strings.TrimSpace(text), DueDate: strings.TrimSpace(due)}
}

func runMeetingList(cmd *cobra.Command, args []string) error {
	_, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	if meetingListOpen {
		return listPendingTodos(cmd, repo.PendingTodos(), args)
	}

	var meetings []domain.Meeting
	if len(args) == 1 {
		if _, err := repo.GetContact(args[0]); err != nil {
			return err
		}
		meetings = repo.MeetingsFor(args[0])
	} else {
		meetings = repo.Meetings()
	}
	if meetings == nil {
		meetings = []domain.Meeting{}
	}

	return render(cmd, meetings, func(w io.Writer, st *styles) {
		if len(meetings) == 0 {
			fmt.Fprintln(w, st.Muted.Render("No meetings found."))
			return
		}
		rows := make([][]string, 0, len(meetings))
		for _, m := range meetings {
			name := m.ContactID
			if c, err := repo.GetContact(m.ContactID); err == nil {
				name = c.Name
			}
			rows = append(rows, []string{m.Date, m.ID, name, todoSummary(m.Todos), truncate(m.Content, 40)})
		}
		fmt.Fprintln(w, st.table([]string{"Date", "Meeting", "Contact", "Todos", "Notes"}, rows))
	})
}

// pendingTodoView is the serialised form of an open todo.
type pendingTodoView struct {
	MeetingID string `json:"meetingId"`
	ContactID string `json:"contactId"`
	Number    int    `json:"number"`
	Date      string `json:"date"`
	Text      string `json:"text"`
	DueDate   string `json:"dueDate,omitempty"`
}

func listPendingTodos(cmd *cobra.Command, pending []services.PendingTodo, args []string) error {
	views := []pendingTodoView{}
	for _, p := range pending {
		if len(args) == 1 && p.ContactID != args[0] {
			continue
		}
		views = append(views, pendingTodoView{
			MeetingID: p.MeetingID,
			ContactID: p.ContactID,
			Number:    p.Index + 1,
			Date:      p.Date,
			Text:      p.Todo.Text,
			DueDate:   p.Todo.DueDate,
		})
	}

	return render(cmd, views, func(w io.Writer, st *styles) {
		if len(views) == 0 {
			fmt.Fprintln(w, st.Muted.Render("No open todos."))
			return
		}
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{v.DueDate, v.Text, v.ContactID, v.MeetingID, strconv.Itoa(v.Number)})
		}
		fmt.Fprintln(w, st.table([]string{"Due", "Todo", "Contact", "Meeting", "#"}, rows))
	})
}

func runMeetingDelete(cmd *cobra.Command, args []string) error {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	m, err := repo.RemoveMeeting(args[0])
	if err != nil {
		return err
	}
	save := func() error { return s.Workspace.SaveContact(cmd.Context(), m.ContactID) }
	if _, err := repo.GetContact(m.ContactID); err != nil {
		// Orphaned meeting: only a full save rewrites its file.
		save = func() error { return s.Workspace.SaveAll(cmd.Context()) }
	}
	if err := save(); err != nil {
		return fmt.Errorf("failed to save meetings: %w", err)
	}
	cmd.Printf("Deleted meeting %s\n", m.ID)
	return nil
}

func runMeetingDone(cmd *cobra.Command, args []string) error {
	number, err := strconv.Atoi(args[1])
	if err != nil || number < 1 {
		return fmt.Errorf("invalid todo number %q", args[1])
	}

	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	m, err := repo.GetMeeting(args[0])
	if err != nil {
		return err
	}
	if err := repo.SetTodoCompleted(m.ID, number-1, !meetingDoneUndo); err != nil {
		return err
	}
	if err := s.Workspace.SaveContact(cmd.Context(), m.ContactID); err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}

	state := "completed"
	if meetingDoneUndo {
		state = "open"
	}
	cmd.Printf("Todo #%d of meeting %s marked %s\n", number, m.ID, state)
	return nil
}
