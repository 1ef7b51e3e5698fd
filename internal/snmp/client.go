package snmp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// DefaultBatchSize is the GetBulk max-repetitions used for table walks
const DefaultBatchSize = 100

// ErrVersionMismatch is returned when a device answers with another protocol version
var ErrVersionMismatch = errors.New("snmp: response version mismatch")

// AgentError reports a nonzero error-status from the device
type AgentError struct {
	Status int
	Index  int
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("snmp agent returned error %d for binding index %d", e.Status, e.Index)
}

// Table maps row instance keys to column id -> value
type Table map[string]map[uint32]Value

// Client issues Get and table walk requests through a Transport
type Client struct {
	transport Transport
	batchSize uint32
	log       logr.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBatchSize sets the GetBulk max-repetitions. Values below 1 are ignored.
func WithBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = uint32(n)
		}
	}
}

// WithLogger sets the client logger
func WithLogger(log logr.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client over the given transport
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		batchSize: DefaultBatchSize,
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a single value. The bool is false when the device has no
// such object or returned no binding.
func (c *Client) Get(ctx context.Context, target Target, oid string) (Value, bool, error) {
	id, err := ParseOID(oid)
	if err != nil {
		return Value{}, false, err
	}

	session, err := c.transport.Open(ctx, target)
	if err != nil {
		return Value{}, false, err
	}
	defer session.Close()

	resp, err := session.Request(ctx, PDU{Kind: PDUGet, OIDs: []OID{id}})
	if err != nil {
		return Value{}, false, fmt.Errorf("get %s from %s: %w", oid, target.Address, err)
	}
	if err := checkResponse(resp, target.Version); err != nil {
		return Value{}, false, fmt.Errorf("get %s from %s: %w", oid, target.Address, err)
	}

	if len(resp.Bindings) == 0 {
		return Value{}, false, nil
	}
	v := resp.Bindings[0].Value
	if v.IsException() || v.Type == TypeNull {
		return Value{}, false, nil
	}
	return v, true, nil
}

// WalkTable retrieves the conceptual table rooted at base with paginated
// GetBulk requests. An empty Table means the device has no rows. GetBulk
// needs v2c, so walks use it whatever version the target asks for.
func (c *Client) WalkTable(ctx context.Context, target Target, base string) (Table, error) {
	baseOID, err := ParseOID(base)
	if err != nil {
		return nil, err
	}
	target.Version = Version2c

	// Every table OID is followed by .1 for the entry
	root := baseOID.Append(1)
	cursor := root
	result := make(Table)

	session, err := c.transport.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	start := time.Now()
	batches := 0

	for root.IsRootOf(cursor) || cursor.Equal(root) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := session.Request(ctx, PDU{
			Kind:           PDUGetBulk,
			OIDs:           []OID{cursor},
			NonRepeaters:   0,
			MaxRepetitions: c.batchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s on %s: %w", base, target.Address, err)
		}
		if err := checkResponse(resp, target.Version); err != nil {
			return nil, fmt.Errorf("walk %s on %s: %w", base, target.Address, err)
		}
		batches++

		next, done := c.consume(root, cursor, resp.Bindings, result)
		if done {
			break
		}
		cursor = next
	}

	c.log.V(1).Info("Walked table", "target", target.Address, "oid", base,
		"rows", len(result), "batches", batches, "elapsed", time.Since(start))
	return result, nil
}

// consume folds one batch into result. It returns the cursor for the next
// request and whether the walk has reached the end of the table.
func (c *Client) consume(root, cursor OID, bindings []Binding, result Table) (OID, bool) {
	if len(bindings) == 0 {
		return cursor, true
	}

	last := cursor
	for _, b := range bindings {
		if b.Value.Type == TypeEndOfMibView {
			return last, true
		}
		if !root.IsRootOf(b.OID) {
			// Past the end of the requested table
			return last, true
		}

		child := b.OID.ChildOf(root)
		column := child[0]
		key := joinUint32(child[1:])

		row, ok := result[key]
		if !ok {
			row = make(map[uint32]Value)
			result[key] = row
		}
		row[column] = b.Value
		last = b.OID
	}

	// An agent that does not move the cursor forward would loop forever
	if last.Compare(cursor) <= 0 {
		c.log.V(1).Info("Agent did not advance cursor, stopping walk", "cursor", cursor.String())
		return last, true
	}
	return last, false
}

func checkResponse(resp *Response, want Version) error {
	if resp == nil {
		return errors.New("snmp: no response")
	}
	if want == "" {
		want = Version2c
	}
	if resp.Version != want {
		return fmt.Errorf("%w: expected %s, got %s", ErrVersionMismatch, want, resp.Version)
	}
	if resp.ErrorStatus != 0 {
		return &AgentError{Status: resp.ErrorStatus, Index: resp.ErrorIndex}
	}
	return nil
}
