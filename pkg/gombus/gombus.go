// Package gombus is a primary-master library for wired M-Bus (EN 13757-2/-3)
// metering devices. A Client speaks to a bus over a serial port or a TCP
// gateway and retrieves typed measurement records.
package gombus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/d21d3q/gombus/internal/records"
	"github.com/d21d3q/gombus/internal/session"
	"github.com/d21d3q/gombus/internal/transport"
)

// Client owns a transport and the session driving it.
type Client struct {
	tr transport.Transport
	s  *session.Session
}

// Dial opens a connection to the bus. Plain paths (/dev/ttyUSB0, COM3) open
// a serial port in M-Bus 8E1 framing; socket://host:port connects to a TCP
// gateway. rfc2217:// URLs are not supported.
func Dial(url string, opts ...Option) (*Client, error) {
	cfg := buildOptions(opts)
	tr, err := openTransport(url, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(tr, opts...), nil
}

// NewClient wraps an existing transport; used with custom transports and in
// tests.
func NewClient(tr transport.Transport, opts ...Option) *Client {
	cfg := buildOptions(opts)
	return &Client{
		tr: tr,
		s:  session.New(tr, cfg.session, cfg.logger),
	}
}

func openTransport(url string, cfg options) (transport.Transport, error) {
	switch {
	case strings.HasPrefix(url, "socket://"):
		return transport.DialTCP(transport.TCPConfig{
			Address:    strings.TrimPrefix(url, "socket://"),
			BaudRate:   cfg.serial.BaudRate,
			Multiplier: cfg.serial.Multiplier,
		})
	case strings.HasPrefix(url, "rfc2217://"):
		return nil, fmt.Errorf("rfc2217 port control is not supported, use a raw socket:// tunnel")
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("unsupported connection URL %q", url)
	default:
		sc := cfg.serial
		sc.Device = url
		return transport.OpenSerial(sc)
	}
}

// Reset sends a link reset (SND_NKE) to the given primary address.
func (c *Client) Reset(ctx context.Context, addr int) error {
	return c.s.Reset(ctx, addr)
}

// ReadRecords resets the slave and retrieves all of its records, following
// FCB-toggled multi-datagram sequences to the end.
func (c *Client) ReadRecords(ctx context.Context, addr int) (*ReadResult, error) {
	ud, err := c.s.ReadRecords(ctx, addr)
	if err != nil {
		return nil, err
	}
	return newReadResult(ud), nil
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.tr.Close()
}

// ReadResult is the aggregate of one readout: device identification, status
// and the records from every datagram in payload order.
type ReadResult struct {
	Address byte
	Records []records.Record

	SerialNumber uint32
	Manufacturer string
	Version      byte
	Medium       string

	Status      byte
	StatusFlags map[string]bool

	// ManufacturerData holds the verbatim trailer bytes after DIF 0x0F.
	// Fields carries a registered trailer decoder's output, when one matched.
	ManufacturerData []byte
	Fields           map[string]any

	// Opaque is set for responses with a CI the library does not interpret.
	OpaqueCI      byte
	OpaquePayload []byte
}

func newReadResult(ud *records.UserData) *ReadResult {
	r := &ReadResult{
		Address:          ud.Address,
		Records:          ud.Records,
		Status:           ud.Status,
		StatusFlags:      ud.StatusFlags(),
		ManufacturerData: ud.ManufacturerData,
	}
	if ud.Identification != nil {
		r.SerialNumber = ud.Identification.SerialNumber
		r.Manufacturer = ud.Identification.ManufacturerCode()
		r.Version = ud.Identification.Version
		r.Medium = ud.Identification.MediumName()
	}
	if ud.Opaque != nil {
		r.OpaqueCI = ud.CI
		r.OpaquePayload = ud.Opaque
	}
	if len(r.ManufacturerData) > 0 && r.Manufacturer != "" {
		if dec := lookupTrailerDecoder(r.Manufacturer); dec != nil {
			if fields, err := dec.Decode(r.ManufacturerData); err == nil {
				r.Fields = fields
			}
		}
	}
	return r
}

// String renders a human-readable JSON summary.
func (r *ReadResult) String() string {
	summary := map[string]any{
		"address": r.Address,
	}
	if r.Manufacturer != "" {
		summary["manufacturer"] = r.Manufacturer
		summary["serial"] = fmt.Sprintf("%08d", r.SerialNumber)
		summary["medium"] = r.Medium
		summary["version"] = r.Version
	}
	if len(r.StatusFlags) > 0 {
		summary["status"] = r.StatusFlags
	}
	recs := make([]map[string]any, 0, len(r.Records))
	for i := range r.Records {
		rec := &r.Records[i]
		entry := map[string]any{
			"description": rec.VIB.Description,
			"function":    rec.DIB.Function.String(),
		}
		if unit := rec.Unit(); unit != "" {
			entry["unit"] = unit
		}
		if rec.DIB.StorageNumber != 0 {
			entry["storage"] = rec.DIB.StorageNumber
		}
		if rec.DIB.Tariff != 0 {
			entry["tariff"] = rec.DIB.Tariff
		}
		if rec.DIB.Subunit != 0 {
			entry["subunit"] = rec.DIB.Subunit
		}
		if v, ok := rec.Scaled(); ok {
			entry["value"] = v
		} else if rec.Value.Kind == records.ValueString {
			entry["value"] = rec.Value.Str
		} else if rec.Value.Kind == records.ValueDate || rec.Value.Kind == records.ValueDateTime {
			if rec.Value.Valid {
				entry["value"] = rec.Value.Time.Format("2006-01-02 15:04:05")
			}
		}
		if !rec.Value.Valid {
			entry["invalid"] = true
		}
		if errs := rec.VIB.RecordErrors(); len(errs) > 0 {
			entry["record_errors"] = errs
		}
		recs = append(recs, entry)
	}
	summary["records"] = recs
	if len(r.Fields) > 0 {
		summary["fields"] = r.Fields
	}
	if len(r.ManufacturerData) > 0 {
		summary["manufacturer_data"] = fmt.Sprintf("%X", r.ManufacturerData)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Sprintf("address:%d records:%d (marshal error: %v)", r.Address, len(r.Records), err)
	}
	return string(data)
}
