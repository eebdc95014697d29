package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/services"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage contacts",
	Long: `Add, list, show, update and delete contacts.

Every change is written to the store immediately and the index files are
rebuilt afterwards.`,
}

var contactAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a contact",
	Long: `Add a contact. New contacts get the next sequential ID (000001, 000002, ...).

Examples:
  rolodex contact add --name "Taro Tanaka" --company Acme --type Investor
  rolodex contact add --name "Jane Doe" --email jane@example.com --email jd@example.org`,
	Args: cobra.NoArgs,
	RunE: runContactAdd,
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts",
	Args:  cobra.NoArgs,
	RunE:  runContactList,
}

var contactShowCmd = &cobra.Command{
	Use:   "show [contact-id]",
	Short: "Show a contact and its meetings",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactShow,
}

var contactUpdateCmd = &cobra.Command{
	Use:   "update [contact-id]",
	Short: "Update a contact",
	Long: `Update a contact. Only the flags given are changed; list flags such as
--email replace the whole list.`,
	Args: cobra.ExactArgs(1),
	RunE: runContactUpdate,
}

var contactDeleteCmd = &cobra.Command{
	Use:   "delete [contact-id]",
	Short: "Delete a contact and its meetings",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactDelete,
}

// contactFlags are the editable contact fields shared by add and update.
type contactFlags struct {
	name, furigana, company, position string
	business, history, priorInfo      string
	referrer, status                  string
	emails, phones                    []string
	types, affiliations, industries   []string
	revenue                           float64
}

var (
	contactAddFlags    contactFlags
	contactUpdateFlags contactFlags
	contactFilter      services.ContactFilter
	contactDeleteYes   bool
)

func (f *contactFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "Full name")
	fs.StringVar(&f.furigana, "furigana", "", "Reading of the name")
	fs.StringVar(&f.company, "company", "", "Company")
	fs.StringVar(&f.position, "position", "", "Position or title")
	fs.StringSliceVar(&f.emails, "email", nil, "E-mail address (repeatable)")
	fs.StringSliceVar(&f.phones, "phone", nil, "Phone number (repeatable)")
	fs.StringSliceVar(&f.types, "type", nil, "Contact type tag (repeatable)")
	fs.StringSliceVar(&f.affiliations, "affiliation", nil, "Affiliation tag (repeatable)")
	fs.StringSliceVar(&f.industries, "industry", nil, "Industry interest tag (repeatable)")
	fs.Float64Var(&f.revenue, "revenue", 0, "Revenue")
	fs.StringVar(&f.referrer, "referrer", "", "Name of the contact who made the introduction")
	fs.StringVar(&f.status, "status", "", "Relationship status")
	fs.StringVar(&f.business, "business", "", "Business description")
	fs.StringVar(&f.history, "history", "", "History notes")
	fs.StringVar(&f.priorInfo, "prior-info", "", "Information gathered before meeting")
}

// apply copies the flags given on the command line onto c.
func (f *contactFlags) apply(cmd *cobra.Command, c *domain.Contact) {
	fs := cmd.Flags()
	strs := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"name", &c.Name, f.name},
		{"furigana", &c.Furigana, f.furigana},
		{"company", &c.Company, f.company},
		{"position", &c.Position, f.position},
		{"referrer", &c.Referrer, f.referrer},
		{"status", &c.Status, f.status},
		{"business", &c.Business, f.business},
		{"history", &c.History, f.history},
		{"prior-info", &c.PriorInfo, f.priorInfo},
	}
	for _, s := range strs {
		if fs.Changed(s.flag) {
			*s.dst = s.val
		}
	}

	lists := []struct {
		flag string
		dst  *[]string
		val  []string
	}{
		{"email", &c.Emails, f.emails},
		{"phone", &c.Phones, f.phones},
		{"type", &c.Types, f.types},
		{"affiliation", &c.Affiliations, f.affiliations},
		{"industry", &c.IndustryInterests, f.industries},
	}
	for _, l := range lists {
		if fs.Changed(l.flag) {
			*l.dst = append([]string(nil), l.val...)
		}
	}

	if fs.Changed("revenue") {
		c.Revenue = f.revenue
	}
}

func init() {
	contactAddFlags.register(contactAddCmd)
	_ = contactAddCmd.MarkFlagRequired("name")
	contactUpdateFlags.register(contactUpdateCmd)

	contactListCmd.Flags().StringVar(&contactFilter.Type, "type", "", "Only contacts with this type")
	contactListCmd.Flags().StringVar(&contactFilter.Affiliation, "affiliation", "", "Only contacts with this affiliation")
	contactListCmd.Flags().StringVar(&contactFilter.IndustryInterest, "industry", "", "Only contacts with this industry interest")
	contactListCmd.Flags().StringVar(&contactFilter.Status, "status", "", "Only contacts with this status")
	contactListCmd.Flags().StringVarP(&contactFilter.Query, "query", "q", "", "Match name, furigana, company or e-mail")

	contactDeleteCmd.Flags().BoolVarP(&contactDeleteYes, "yes", "y", false, "Delete without asking")

	contactCmd.AddCommand(contactAddCmd)
	contactCmd.AddCommand(contactListCmd)
	contactCmd.AddCommand(contactShowCmd)
	contactCmd.AddCommand(contactUpdateCmd)
	contactCmd.AddCommand(contactDeleteCmd)
	rootCmd.AddCommand(contactCmd)
}

func runContactAdd(cmd *cobra.Command, _ []string) error {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	var c domain.Contact
	contactAddFlags.apply(cmd, &c)
	added, err := repo.AddContact(c)
	if err != nil {
		return fmt.Errorf("failed to add contact: %w", err)
	}
	if err := s.Workspace.SaveContact(cmd.Context(), added.ID); err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return render(cmd, added, func(w io.Writer, st *styles) {
		fmt.Fprintf(w, "%s %s (%s)\n", st.Success.Render("Added contact"), added.ID, added.Name)
	})
}

func runContactList(cmd *cobra.Command, _ []string) error {
	_, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	contacts := repo.FindContacts(contactFilter)
	if contacts == nil {
		contacts = []domain.Contact{}
	}

	return render(cmd, contacts, func(w io.Writer, st *styles) {
		if len(contacts) == 0 {
			fmt.Fprintln(w, st.Muted.Render("No contacts found."))
			return
		}
		rows := make([][]string, 0, len(contacts))
		for i := range contacts {
			c := &contacts[i]
			rows = append(rows, []string{
				c.ID,
				c.Name,
				c.Company,
				c.Status,
				joinList(c.Types),
				strconv.Itoa(len(repo.MeetingsFor(c.ID))),
			})
		}
		fmt.Fprintln(w, st.table([]string{"ID", "Name", "Company", "Status", "Types", "Meetings"}, rows))
		fmt.Fprintf(w, "%d contact(s)\n", len(contacts))
	})
}

// contactView is a contact together with its meetings.
type contactView struct {
	domain.Contact
	Meetings []domain.Meeting `json:"meetings"`
}

func runContactShow(cmd *cobra.Command, args []string) error {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	c, err := repo.GetContact(args[0])
	if err != nil {
		return err
	}
	view := contactView{Contact: *c, Meetings: repo.MeetingsFor(c.ID)}
	if view.Meetings == nil {
		view.Meetings = []domain.Meeting{}
	}

	return render(cmd, view, func(w io.Writer, st *styles) {
		fmt.Fprintln(w, st.Title.Render(c.ID+"  "+c.Name))
		st.field(w, "Furigana", c.Furigana)
		st.field(w, "Company", c.Company)
		st.field(w, "Position", c.Position)
		st.field(w, "E-mail", joinList(c.Emails))
		st.field(w, "Phone", joinList(c.Phones))
		st.field(w, "Types", joinList(c.Types))
		st.field(w, "Affiliations", joinList(c.Affiliations))
		st.field(w, "Industries", joinList(c.IndustryInterests))
		if c.Revenue != 0 {
			st.field(w, "Revenue", strconv.FormatFloat(c.Revenue, 'f', -1, 64))
		}
		st.field(w, "Referrer", c.Referrer)
		st.field(w, "Status", c.Status)
		st.field(w, "Business", c.Business)
		st.field(w, "History", c.History)
		st.field(w, "Prior info", c.PriorInfo)
		st.field(w, "Photo", refLink(s, c.Photo))
		st.field(w, "Business card", refLink(s, c.BusinessCard))
		for _, a := range c.Attachments {
			st.field(w, "Attachment", a.Name+" "+st.Muted.Render(refLink(s, a.Ref)))
		}

		if len(view.Meetings) == 0 {
			return
		}
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(view.Meetings))
		for _, m := range view.Meetings {
			rows = append(rows, []string{m.Date, m.ID, todoSummary(m.Todos), truncate(m.Content, 40)})
		}
		fmt.Fprintln(w, st.table([]string{"Date", "Meeting", "Todos", "Notes"}, rows))
	})
}

func runContactUpdate(cmd *cobra.Command, args []string) error {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	existing, err := repo.GetContact(args[0])
	if err != nil {
		return err
	}
	c := *existing
	contactUpdateFlags.apply(cmd, &c)

	updated, err := repo.UpdateContact(c)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if err := s.Workspace.SaveContact(cmd.Context(), updated.ID); err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return render(cmd, updated, func(w io.Writer, st *styles) {
		fmt.Fprintf(w, "%s %s (%s)\n", st.Success.Render("Updated contact"), updated.ID, updated.Name)
	})
}

func runContactDelete(cmd *cobra.Command, args []string) error {
	s, repo, err := openRepository(cmd)
	if err != nil {
		return err
	}

	c, err := repo.GetContact(args[0])
	if err != nil {
		return err
	}
	if !contactDeleteYes {
		n := len(repo.MeetingsFor(c.ID))
		ok, err := confirm(cmd, fmt.Sprintf("Delete %s (%s) and %d meeting(s)?", c.ID, c.Name, n))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	if err := s.Workspace.DeleteContact(cmd.Context(), c.ID); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	cmd.Printf("Deleted contact %s (%s)\n", c.ID, c.Name)
	return nil
}

// refLink prefers a browser link for stored files.
func refLink(s *Session, ref domain.FileRef) string {
	if ref == "" {
		return ""
	}
	if s.ResolveURL != nil {
		if url := s.ResolveURL(ref); url != "" {
			return url
		}
	}
	if ref.Kind() == domain.FileRefInline {
		return "(inline image)"
	}
	return string(ref)
}

func todoSummary(todos []domain.Todo) string {
	if len(todos) == 0 {
		return ""
	}
	open := 0
	for _, t := range todos {
		if !t.Completed {
			open++
		}
	}
	return fmt.Sprintf("%d open / %d", open, len(todos))
}
