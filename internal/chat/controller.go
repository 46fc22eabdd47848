package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/warelinehq/wareline/internal/store"
)

// Generator produces the fallback reply for unclassified turns. It is never
// consulted for routing; intent detection and state transitions stay
// deterministic regardless of its output.
type Generator interface {
	Generate(ctx context.Context, history []string, message string) (string, error)
}

const (
	replyNoSectors     = "You haven't created any sectors yet."
	replyGreeting      = "Hello! I'm your warehouse inventory assistant. I can help you manage sectors, warehouses, and inventory logs. What would you like to do today?"
	replyNoQuestions   = "You haven't asked me any questions yet."
	replyInvalidNumber = "Please provide a valid number for the inventory count."
	replyLogSaved      = "Thanks, your log has been added successfully."
	replyNoColumns     = "This warehouse doesn't have any inventory columns defined."
	replyCapabilities  = "I'm your warehouse inventory assistant. I can help with:\n- Showing your sectors list\n- Showing warehouses in a sector\n- Adding inventory logs\n\nCould you please phrase your request related to warehouse inventory management?"
	replyStoreTrouble  = "I'm having trouble reaching the inventory records right now. Please try again in a moment."
	replyInternalErr   = "Sorry, something went wrong while processing your message. Please try again."
)

// ControllerOptions carries the optional collaborators.
type ControllerOptions struct {
	// Fallback handles unknown-intent turns; nil disables the LLM path and
	// unknown turns get the fixed capability summary.
	Fallback Generator
	// Timeout bounds each store or fallback call within a turn.
	Timeout time.Duration
}

// Controller orchestrates one chat turn per call: mid-collection replies are
// parsed as numbers, everything else is classified and dispatched. All
// session access for a user happens under that user's lock for the whole
// turn.
type Controller struct {
	store    store.Store
	resolver *Resolver
	sessions *Sessions
	history  *History
	fallback Generator
	timeout  time.Duration
}

func NewController(st store.Store, opts ControllerOptions) *Controller {
	return &Controller{
		store:    st,
		resolver: NewResolver(st),
		sessions: NewSessions(),
		history:  NewHistory(),
		fallback: opts.Fallback,
		timeout:  opts.Timeout,
	}
}

// Respond handles one turn and always returns user-facing text; store and
// internal failures degrade to fixed replies and never escape to the
// transport.
func (c *Controller) Respond(ctx context.Context, userID, content string) string {
	reply := c.respond(ctx, userID, content)
	c.history.AddAnswer(userID, reply)
	return reply
}

func (c *Controller) respond(ctx context.Context, userID, content string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[chat] panic handling turn for %s: %v", userID, r)
			reply = replyInternalErr
		}
	}()

	c.history.AddQuestion(userID, content)

	c.sessions.Do(userID, func(s *Session) {
		if s.Stage == StageCollecting {
			reply = c.collectValue(ctx, userID, s, content)
			return
		}
		reply = c.dispatch(ctx, userID, s, content)
	})
	return reply
}

// collectValue advances the column-by-column sub-dialog by one reply.
func (c *Controller) collectValue(ctx context.Context, userID string, s *Session, content string) string {
	value, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return replyInvalidNumber
	}

	col := s.CurrentColumn()

	if s.Cursor+1 >= len(s.Pending) {
		// Final column: persist first, mutate the session only on success so
		// a failed insert leaves the user free to resend the value.
		record := make(map[string]any, len(s.Record)+1)
		for k, v := range s.Record {
			record[k] = v
		}
		record[col.DataIndex] = value

		opCtx, cancel := c.opContext(ctx)
		defer cancel()
		if _, err := c.store.InsertLog(opCtx, store.LogRecord{
			WarehouseID: s.WarehouseID,
			Owner:       userID,
			Data:        record,
		}); err != nil {
			log.Printf("[chat] insert log for %s: %v", userID, err)
			return replyStoreTrouble
		}

		s.Reset()
		return replyLogSaved
	}

	s.Record[col.DataIndex] = value
	s.Cursor++
	return fmt.Sprintf("Thanks, now please provide inventory count for %s.", s.CurrentColumn().Title)
}

func (c *Controller) dispatch(ctx context.Context, userID string, s *Session, content string) string {
	intent := Classify(content)

	switch intent.Kind {
	case KindListSectors:
		return c.listSectors(ctx, userID)
	case KindListWarehouses:
		return c.listWarehouses(ctx, userID, intent.Sector)
	case KindAddLog:
		return c.beginAddLog(ctx, userID, s, intent)
	case KindGreeting:
		return replyGreeting
	case KindPreviousQuestions:
		return c.previousQuestions(userID)
	default:
		return c.unknown(ctx, userID, content)
	}
}

func (c *Controller) listSectors(ctx context.Context, userID string) string {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	sectors, err := c.store.FindSectors(opCtx, userID)
	if err != nil {
		log.Printf("[chat] list sectors for %s: %v", userID, err)
		return replyStoreTrouble
	}
	if len(sectors) == 0 {
		return replyNoSectors
	}

	names := make([]string, len(sectors))
	for i, sec := range sectors {
		names[i] = sec.Name
	}
	return fmt.Sprintf("Your created sectors are: %s.", strings.Join(names, ", "))
}

func (c *Controller) listWarehouses(ctx context.Context, userID, sectorToken string) string {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	sec, err := c.resolver.ResolveSector(opCtx, sectorToken, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("I couldn't find %s in your account.", displayName(sectorToken, "Sector"))
		}
		log.Printf("[chat] resolve sector for %s: %v", userID, err)
		return replyStoreTrouble
	}

	warehouses, err := c.store.FindWarehouses(opCtx, userID, sec.ID)
	if err != nil {
		log.Printf("[chat] list warehouses for %s: %v", userID, err)
		return replyStoreTrouble
	}
	if len(warehouses) == 0 {
		return fmt.Sprintf("You don't have any warehouses in %s.", displayName(sectorToken, "Sector"))
	}

	names := make([]string, len(warehouses))
	for i, w := range warehouses {
		names[i] = w.Name
	}
	return fmt.Sprintf("Warehouses in %s are: %s.", sectorToken, strings.Join(names, ", "))
}

// beginAddLog arms the collection sub-dialog. Every resolution step runs
// before any session mutation, so an aborted or failed turn leaves the
// session untouched.
func (c *Controller) beginAddLog(ctx context.Context, userID string, s *Session, intent Intent) string {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	sec, err := c.resolver.ResolveSector(opCtx, intent.Sector, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("I couldn't find %s in your account.", displayName(intent.Sector, "Sector"))
		}
		log.Printf("[chat] resolve sector for %s: %v", userID, err)
		return replyStoreTrouble
	}

	w, err := c.resolver.ResolveWarehouse(opCtx, intent.Warehouse, sec.ID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("I couldn't find %s in %s.",
				displayName(intent.Warehouse, "Warehouse"), displayName(intent.Sector, "Sector"))
		}
		log.Printf("[chat] resolve warehouse for %s: %v", userID, err)
		return replyStoreTrouble
	}

	columns := w.InventoryColumns()
	if len(columns) == 0 {
		return replyNoColumns
	}

	s.BeginCollection(w.ID, sec.ID, columns)
	return fmt.Sprintf("Please provide inventory count for %s.", columns[0].Title)
}

func (c *Controller) previousQuestions(userID string) string {
	questions := c.history.Questions(userID)
	if len(questions) == 0 {
		return replyNoQuestions
	}

	var sb strings.Builder
	sb.WriteString("Your previous questions were:")
	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, q))
	}
	return sb.String()
}

func (c *Controller) unknown(ctx context.Context, userID, content string) string {
	if c.fallback != nil {
		opCtx, cancel := c.opContext(ctx)
		defer cancel()

		text, err := c.fallback.Generate(opCtx, c.history.Questions(userID), content)
		if err != nil {
			log.Printf("[chat] fallback generate for %s: %v", userID, err)
		} else if strings.TrimSpace(text) != "" {
			return text
		}
	}
	return replyCapabilities
}

func (c *Controller) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// displayName prefixes bare entity tokens with their kind so replies read
// naturally ("Sector alpha") without doubling an existing prefix
// ("Sector 2" stays as is).
func displayName(token, kind string) string {
	if strings.HasPrefix(strings.ToLower(token), strings.ToLower(kind)+" ") {
		return token
	}
	return kind + " " + token
}
