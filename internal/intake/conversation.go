package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	"github.com/angelmondragon/bakery-quotes/internal/render"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

// Quoter generates the quotation once every field is confirmed.
type Quoter interface {
	Generate(ctx context.Context, req quotes.JobRequest) (*quotes.Quote, error)
	JobTypes() []string
}

// Reply is the answer to one message.
type Reply struct {
	SessionID string            `json:"session_id"`
	State     enums.IntakeState `json:"state"`
	Message   string            `json:"message"`
	Missing   []string          `json:"missing,omitempty"`
	Fields    Fields            `json:"fields"`
	Quote     *quotes.Quote     `json:"quote,omitempty"`
}

// Conversation drives the intake state machine
// greeting -> collecting_fields -> confirming -> assembling -> done | error.
type Conversation struct {
	store  SessionStore
	quoter Quoter
	logg   *logger.Logger
	now    func() time.Time
}

func NewConversation(store SessionStore, quoter Quoter, logg *logger.Logger) (*Conversation, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if quoter == nil {
		return nil, fmt.Errorf("quoter required")
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "intake", Output: io.Discard})
	}
	return &Conversation{store: store, quoter: quoter, logg: logg, now: time.Now}, nil
}

// Handle applies one user message to the session, creating it on first use.
func (c *Conversation) Handle(ctx context.Context, sessionID, text string) (Reply, error) {
	if !ValidSessionID(sessionID) {
		return Reply{}, pkgerrors.Validation(pkgerrors.Violation("session_id", "must be 1-64 letters, digits, '-' or '_'"))
	}
	ctx = c.logg.WithSessionID(ctx, sessionID)

	sess, err := c.store.Load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		sess = newSession(sessionID, c.now().UTC())
	} else if err != nil {
		return Reply{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "intake session unavailable")
	}

	from := sess.State
	text = strings.TrimSpace(text)
	var msg string
	var quote *quotes.Quote
	if isCommand(text, "reset", "new", "start over") {
		sess.reset()
		msg = c.greet(sess, nil)
	} else {
		msg, quote = c.step(ctx, sess, text)
	}

	sess.UpdatedAt = c.now().UTC()
	if err := c.store.Save(ctx, sess); err != nil {
		return Reply{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "intake session unavailable")
	}
	if from != sess.State {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"from": string(from),
			"to":   string(sess.State),
		}), "intake.transition")
	}

	return Reply{
		SessionID: sess.ID,
		State:     sess.State,
		Message:   msg,
		Missing:   sess.Fields.Missing(),
		Fields:    sess.Fields,
		Quote:     quote,
	}, nil
}

// Get returns the stored session.
func (c *Conversation) Get(ctx context.Context, sessionID string) (*Session, error) {
	if !ValidSessionID(sessionID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "intake session not found")
	}
	sess, err := c.store.Load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "intake session not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "intake session unavailable")
	}
	return sess, nil
}

// Reset discards the session.
func (c *Conversation) Reset(ctx context.Context, sessionID string) error {
	if !ValidSessionID(sessionID) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "intake session not found")
	}
	if err := c.store.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "intake session unavailable")
	}
	return nil
}

func (c *Conversation) step(ctx context.Context, sess *Session, text string) (string, *quotes.Quote) {
	switch sess.State {
	case enums.IntakeGreeting:
		return c.greet(sess, c.apply(sess, text)), nil
	case enums.IntakeCollecting:
		return c.advance(sess, c.apply(sess, text)), nil
	case enums.IntakeConfirming:
		switch {
		case isCommand(text, "yes", "y", "confirm", "ok"):
			return c.assemble(ctx, sess)
		case isCommand(text, "no", "n", "edit", "change"):
			sess.State = enums.IntakeCollecting
			sess.Pending = ""
			return "What would you like to change? Send `field: value`.", nil
		}
		return c.advance(sess, c.apply(sess, text)), nil
	case enums.IntakeAssembling:
		return c.assemble(ctx, sess)
	case enums.IntakeError:
		if isCommand(text, "retry", "try again") {
			return c.assemble(ctx, sess)
		}
		sess.LastError = ""
		return c.advance(sess, c.apply(sess, text)), nil
	case enums.IntakeDone:
		return fmt.Sprintf("Quotation %s is ready. Send `new` to start another.", sess.QuoteID), nil
	}
	sess.reset()
	return c.greet(sess, nil), nil
}

// apply stores every `field: value` pair in text. A bare answer fills the
// field that was last prompted for. It returns one note per rejected value.
func (c *Conversation) apply(sess *Session, text string) []string {
	if text == "" {
		return nil
	}
	assignments, rest := parseAssignments(text)
	if len(assignments) == 0 && sess.Pending != "" && len(rest) > 0 {
		assignments = append(assignments, assignment{field: sess.Pending, value: strings.Join(rest, " ")})
	}

	var notes []string
	jobTypes := c.quoter.JobTypes()
	for _, a := range assignments {
		value, err := normalizeValue(a.field, a.value, jobTypes)
		if err != nil {
			notes = append(notes, err.Error())
			continue
		}
		sess.Fields.set(a.field, value)
	}
	return notes
}

func (c *Conversation) greet(sess *Session, notes []string) string {
	intro := "Welcome! I can prepare a quotation for " + strings.Join(c.quoter.JobTypes(), ", ") + "."
	return intro + "\n" + c.advance(sess, notes)
}

// advance prompts for the next missing field, or moves to confirmation once
// every required field is present.
func (c *Conversation) advance(sess *Session, notes []string) string {
	var b strings.Builder
	for _, n := range notes {
		b.WriteString(n)
		b.WriteString("\n")
	}

	missing := sess.Fields.Missing()
	if len(missing) > 0 {
		sess.State = enums.IntakeCollecting
		sess.Pending = missing[0]
		prompt := prompts[missing[0]]
		if missing[0] == FieldJobType {
			prompt = fmt.Sprintf(prompt, strings.Join(c.quoter.JobTypes(), ", "))
		}
		b.WriteString(prompt)
		return b.String()
	}

	sess.State = enums.IntakeConfirming
	sess.Pending = ""
	b.WriteString(summary(sess.Fields))
	b.WriteString("\nReply `yes` to generate the quotation or `no` to change something.")
	return b.String()
}

func (c *Conversation) assemble(ctx context.Context, sess *Session) (string, *quotes.Quote) {
	sess.State = enums.IntakeAssembling
	quote, err := c.quoter.Generate(ctx, sess.Fields.Request())
	if err != nil {
		var verr *pkgerrors.ValidationError
		if errors.As(err, &verr) {
			var notes []string
			for _, v := range verr.Violations {
				notes = append(notes, v.Error())
				sess.Fields.set(v.Field, "")
			}
			return c.advance(sess, notes), nil
		}

		sess.State = enums.IntakeError
		sess.LastError = publicMessage(err)
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "intake.generate_failed")
		return fmt.Sprintf("Sorry, the quotation could not be generated: %s\nSend `retry` to try again or `field: value` to change something.", sess.LastError), nil
	}

	sess.State = enums.IntakeDone
	sess.QuoteID = quote.Record.ID
	sess.LastError = ""
	return fmt.Sprintf("Quotation %s is ready.\nTOTAL: %s %s (%s per unit)",
		quote.Record.ID,
		quote.Record.Currency,
		render.Money(quote.Record.Totals.Total),
		render.Money(quote.Record.Totals.UnitPrice),
	), quote
}

func summary(f Fields) string {
	var b strings.Builder
	b.WriteString("Please confirm:\n")
	fmt.Fprintf(&b, "- job_type: %s\n", f.JobType)
	fmt.Fprintf(&b, "- quantity: %s\n", f.Quantity)
	fmt.Fprintf(&b, "- customer_name: %s\n", f.CustomerName)
	fmt.Fprintf(&b, "- due_date: %s", f.DueDate)
	for _, opt := range []string{FieldCompanyName, FieldCurrency, FieldNotes} {
		if v := f.get(opt); v != "" {
			fmt.Fprintf(&b, "\n- %s: %s", opt, v)
		}
	}
	return b.String()
}

func publicMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.PublicMessage()
	}
	return pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage
}

func isCommand(text string, commands ...string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, cmd := range commands {
		if t == cmd {
			return true
		}
	}
	return false
}
