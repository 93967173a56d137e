package objects

// Unconnected Send (0x52): wraps a Message Router request with an explicit
// route so it can reach targets multiple hops away without a pre-established
// connection.

import (
	"fmt"

	"github.com/tturner/cipnet/cip"
	"github.com/tturner/cipnet/datatypes"
	"github.com/tturner/cipnet/epath"
)

// BuildUnconnectedSendPayload assembles the Unconnected Send request body:
// priority/tick, timeout ticks, UINT embedded request size, the embedded
// request (padded to even length), and the padded route path with padded
// length prefix.
func BuildUnconnectedSendPayload(message []byte, route epath.Route, tick TickTime, numTicks uint8, priority bool) ([]byte, error) {
	size := len(message)
	if size > 0xFFFF {
		return nil, &datatypes.DataError{Msg: fmt.Sprintf("embedded request too large: %d bytes", size)}
	}
	routePath, err := epath.PaddedPadLen.Encode(route.Path())
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 4+size+1+len(routePath))
	payload = append(payload, PriorityTickTime(tick, priority), numTicks)
	payload = append(payload, byte(size), byte(size>>8))
	payload = append(payload, message...)
	if size%2 != 0 {
		payload = append(payload, 0x00)
	}
	return append(payload, routePath...), nil
}

// NewUnconnectedSend wraps req in an Unconnected Send against the Connection
// Manager, routing it along route. The reply unwraps to the inner service's
// response via the returned request's parser.
func NewUnconnectedSend(req *cip.Request, route epath.Route, tick TickTime, numTicks uint8) (*cip.Request, error) {
	inner, err := req.Bytes()
	if err != nil {
		return nil, err
	}
	payload, err := BuildUnconnectedSendPayload(inner, route, tick, numTicks, false)
	if err != nil {
		return nil, err
	}
	msg, err := cip.NewLogicalRequest(ServiceUnconnectedSend, ConnectionManager.ClassCode, 1, -1, payload)
	if err != nil {
		return nil, err
	}
	return &cip.Request{
		Message: msg,
		Parser:  &UnconnectedSendResponseParser{Inner: req.Parser},
	}, nil
}

// UnconnectedSendResponseParser unwraps an Unconnected Send reply. A
// successful reply carries the inner service response; failures carry the
// additional status words and, for routing failures, the number of route
// words left unwalked.
type UnconnectedSendResponseParser struct {
	// Inner parses the embedded service response on success.
	Inner cip.ResponseParser
}

// failureHasRemainingPath reports whether the failure body carries a
// remaining path size for this status combination.
func failureHasRemainingPath(status uint8, ext []uint16) bool {
	switch status {
	case cip.StatusResourceUnavailable, cip.StatusPathError:
		return true
	case cip.StatusConnectionFailure:
		if len(ext) == 0 {
			return false
		}
		switch ext[0] {
		case ExtUnconnectedTimeout, ExtPortUnavailable, ExtInvalidLinkAddress, ExtInvalidSegment:
			return true
		}
	}
	return false
}

func (p *UnconnectedSendResponseParser) innerSuccesses() []uint8 {
	if rp, ok := p.Inner.(*cip.RouterResponseParser); ok {
		return rp.SuccessSet()
	}
	return []uint8{cip.StatusSuccess}
}

// Parse decodes the Unconnected Send reply header and dispatches to the
// inner parser or the failure layout.
func (p *UnconnectedSendResponseParser) Parse(data []byte, req *cip.Request) (*cip.Response, error) {
	r := datatypes.NewReader(data)
	hdr, err := r.Read(3)
	if err != nil {
		return nil, fmt.Errorf("decode unconnected send response header: %w", err)
	}
	replyService, status := hdr[0], hdr[2]

	successes := p.innerSuccesses()
	for _, s := range successes {
		if status != s {
			continue
		}
		// additional status size byte, then the embedded service response data; rebuild
		// the router reply layout so the inner parser sees its own reply
		if _, err := r.ReadByte(); err != nil {
			return nil, fmt.Errorf("decode unconnected send response: %w", err)
		}
		inner := make([]byte, 0, len(data))
		inner = append(inner, replyService, 0x00, status, 0x00)
		inner = append(inner, r.Rest()...)
		return p.Inner.Parse(inner, req)
	}

	arrType := datatypes.CountedArrayOf(datatypes.UINT, datatypes.USINT)
	v, err := arrType.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode unconnected send additional status: %w", err)
	}
	words := v.(*datatypes.Array)
	ext := make([]uint16, words.Len())
	for i := range ext {
		ext[i] = words.At(i).(uint16)
	}

	remaining := uint8(0)
	if failureHasRemainingPath(status, ext) && !r.Empty() {
		remaining, _ = r.ReadByte()
	}
	failed, err := UnconnectedSendFailedResponse.New(map[string]any{
		"additional_status":   words,
		"remaining_path_size": remaining,
	})
	if err != nil {
		return nil, err
	}

	service := uint8(0)
	if req != nil {
		service = uint8(req.Message.Uint("service"))
	}
	var extra any
	if failureHasRemainingPath(status, ext) {
		extra = remaining
	}
	general, extMsg := ConnectionManager.StatusMessages(service, status, ext, extra)
	msg := general
	if extMsg != "" {
		msg = fmt.Sprintf("(0x%02x) %s: %s", status, general, extMsg)
	}
	return &cip.Response{
		Request:         req,
		GeneralStatus:   status,
		ExtendedStatus:  ext,
		Data:            failed,
		StatusMessage:   msg,
		SuccessStatuses: successes,
	}, nil
}
