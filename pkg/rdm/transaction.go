package rdm

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/openlighting/olardm/pkg/log"
	"github.com/openlighting/olardm/pkg/pid"
	"github.com/openlighting/olardm/pkg/wire"
)

// ackTimerUnit is the unit of the ACK_TIMER estimate.
const ackTimerUnit = 100 * time.Millisecond

// QUEUED_MESSAGE status type requested while draining.
const statusAdvisory = "advisory"

type state uint8

const (
	stateIdle state = iota
	stateSent
	stateAckTimerWait
	stateAcked
	stateNacked
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "IDLE"
	case stateSent:
		return "SENT"
	case stateAckTimerWait:
		return "ACK_TIMER_WAIT"
	case stateAcked:
		return "ACKED"
	case stateNacked:
		return "NACKED"
	case stateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("STATE(%d)", uint8(s))
	}
}

// transaction drives one request. Its replies arrive one at a time, so only
// completion needs a guard.
type transaction struct {
	id     uint64
	client *Client
	req    Request
	data   []byte
	done   Callback

	state      state
	polls      int
	drainStart time.Time
	finishOnce sync.Once
}

func (t *transaction) start() error {
	method := wire.MethodRDMCommand
	if t.req.CommandClass == wire.DiscoveryCommand {
		method = wire.MethodRDMDiscoveryCommand
	}
	if err := t.call(method, t.req.Pid.Value, t.req.CommandClass, t.data); err != nil {
		t.transition(stateFailed, err.Error())
		return err
	}
	return nil
}

func (t *transaction) call(method string, paramID uint16, cc wire.CommandClass, data []byte) error {
	args, err := wire.EncodeRDMRequest(&wire.RDMRequest{
		Universe:           t.req.Universe,
		UID:                t.req.UID,
		SubDevice:          t.req.SubDevice,
		ParamID:            paramID,
		CommandClass:       cc,
		ParamData:          data,
		IncludeRawResponse: t.req.IncludeRawResponse,
	})
	if err != nil {
		return err
	}
	t.transition(stateSent, fmt.Sprintf("%s 0x%04x", cc, paramID))
	return t.client.caller.Call(method, args, t.onReply)
}

func (t *transaction) onReply(reply []byte, err error) {
	if err != nil {
		t.fail(err)
		return
	}
	resp, err := wire.DecodeRDMResponse(reply)
	if err != nil {
		t.fail(fmt.Errorf("decoding RDM response: %w", err))
		return
	}

	if !resp.ResponseCode.IsSuccess() {
		t.finish(stateFailed, t.baseResult(resp), nil)
		return
	}
	if t.polls > 0 {
		t.handleQueued(resp)
		return
	}

	switch resp.ResponseType {
	case wire.ResponseTypeAck, wire.ResponseTypeAckOverflow:
		t.finish(stateAcked, t.ackResult(resp), nil)
	case wire.ResponseTypeNackReason:
		t.finish(stateNacked, t.nackResult(resp), nil)
	case wire.ResponseTypeAckTimer:
		t.wait(resp)
	default:
		t.fail(fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.ResponseType))
	}
}

func (t *transaction) handleQueued(resp *wire.RDMResponse) {
	switch resp.ResponseType {
	case wire.ResponseTypeAckTimer:
		t.wait(resp)

	case wire.ResponseTypeNackReason:
		reason, err := decodeNackReason(resp.ParamData)
		switch {
		case resp.ParamID == pid.QueuedMessage && err != nil:
			t.fail(fmt.Errorf("queued message: %w", &pid.UnpackError{Field: "nack reason", Msg: err.Error()}))
		case resp.ParamID == pid.QueuedMessage && reason == NackUnknownPID:
			t.fail(ErrQueueingUnsupported)
		case resp.ParamID == t.req.Pid.Value:
			t.finish(stateNacked, t.nackResult(resp), nil)
		default:
			t.debug("rdm: unrelated nack while draining", "pid", fmt.Sprintf("0x%04x", resp.ParamID), "reason", reason.String())
			t.poll()
		}

	case wire.ResponseTypeAck, wire.ResponseTypeAckOverflow:
		if resp.ParamID == t.req.Pid.Value {
			t.finish(stateAcked, t.ackResult(resp), nil)
			return
		}
		t.deliverQueued(resp)
		t.poll()

	default:
		t.fail(fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.ResponseType))
	}
}

// wait schedules the next QUEUED_MESSAGE poll after the ACK_TIMER estimate.
// The wait never runs past the drain deadline; if the estimate would, the
// transaction fails when the deadline is reached instead.
func (t *transaction) wait(resp *wire.RDMResponse) {
	var delay time.Duration
	if len(resp.ParamData) >= 2 {
		delay = time.Duration(binary.BigEndian.Uint16(resp.ParamData)) * ackTimerUnit
	} else {
		t.debug("rdm: ack timer without estimate", "size", len(resp.ParamData))
	}
	now := t.client.scheduler.Now()
	if t.drainStart.IsZero() {
		t.drainStart = now
	}
	if timeout := t.client.drain.Timeout; timeout > 0 {
		remaining := timeout - now.Sub(t.drainStart)
		if remaining <= 0 {
			t.fail(fmt.Errorf("%w: %s elapsed", ErrQueueDrainExceeded, now.Sub(t.drainStart)))
			return
		}
		if delay > remaining {
			t.transition(stateAckTimerWait, fmt.Sprintf("estimate %s exceeds drain deadline", delay))
			t.client.scheduler.AfterFunc(remaining, func() {
				t.fail(fmt.Errorf("%w: ack timer %s past %s deadline", ErrQueueDrainExceeded, delay, timeout))
			})
			return
		}
	}
	t.transition(stateAckTimerWait, fmt.Sprintf("retry in %s", delay))
	t.client.scheduler.AfterFunc(delay, t.poll)
}

func (t *transaction) poll() {
	policy := t.client.drain
	if policy.MaxPolls > 0 && t.polls >= policy.MaxPolls {
		t.fail(fmt.Errorf("%w: %d polls", ErrQueueDrainExceeded, t.polls))
		return
	}
	if policy.Timeout > 0 {
		if elapsed := t.client.scheduler.Now().Sub(t.drainStart); elapsed > policy.Timeout {
			t.fail(fmt.Errorf("%w: %s elapsed", ErrQueueDrainExceeded, elapsed))
			return
		}
	}

	t.polls++
	data := []byte{0x02}
	if qm, ok := t.client.store.Pid(pid.QueuedMessage, 0); ok {
		if packed, err := qm.Pack(wire.GetCommand, []string{statusAdvisory}); err == nil {
			data = packed
		}
	}
	if err := t.call(wire.MethodRDMCommand, pid.QueuedMessage, wire.GetCommand, data); err != nil {
		t.fail(err)
	}
}

func (t *transaction) deliverQueued(resp *wire.RDMResponse) {
	handler := t.client.queuedMessageHandler()
	if handler == nil || len(resp.ParamData) == 0 {
		return
	}
	msg := &QueuedMessage{
		UID:          t.req.UID,
		SubDevice:    resp.SubDevice,
		ParamID:      resp.ParamID,
		CommandClass: resp.CommandClass,
		ResponseType: resp.ResponseType,
		Raw:          resp.ParamData,
	}
	if p, ok := t.client.store.Pid(resp.ParamID, t.req.UID.Manufacturer); ok {
		msg.Pid = p
		msg.Fields, _, msg.DecodeErr = p.Unpack(requestClass(resp.CommandClass), resp.ParamData)
	}
	handler(msg)
}

func (t *transaction) baseResult(resp *wire.RDMResponse) *Result {
	return &Result{
		ResponseCode: resp.ResponseCode,
		ResponseType: resp.ResponseType,
		MessageCount: resp.MessageCount,
		ParamID:      resp.ParamID,
		Pid:          t.req.Pid,
		Polls:        t.polls,
		RawResponses: resp.RawResponse,
	}
}

func (t *transaction) ackResult(resp *wire.RDMResponse) *Result {
	res := t.baseResult(resp)
	res.Raw = resp.ParamData
	fields, ok, err := t.req.Pid.Unpack(t.req.CommandClass, resp.ParamData)
	if ok {
		res.Fields = fields
		res.DecodeErr = err
	}
	return res
}

func (t *transaction) nackResult(resp *wire.RDMResponse) *Result {
	res := t.baseResult(resp)
	res.Raw = resp.ParamData
	reason, err := decodeNackReason(resp.ParamData)
	res.Nack = reason
	if err != nil {
		res.DecodeErr = &pid.UnpackError{Field: "nack reason", Msg: err.Error()}
	}
	return res
}

func (t *transaction) fail(err error) {
	t.finish(stateFailed, nil, err)
}

func (t *transaction) finish(s state, res *Result, err error) {
	t.finishOnce.Do(func() {
		reason := "completed"
		switch {
		case err != nil:
			reason = err.Error()
		case res != nil && !res.ResponseCode.IsSuccess():
			reason = res.ResponseCode.String()
		case res != nil && s == stateNacked:
			reason = res.Nack.String()
		}
		t.transition(s, reason)
		if t.client.logger != nil {
			t.client.logger.Debug("rdm: transaction done",
				"txn", t.id,
				"uid", t.req.UID.String(),
				"pid", t.req.Pid.Name,
				"state", s.String(),
				"polls", t.polls,
				"error", err)
		}
		t.done(res, err)
	})
}

func (t *transaction) transition(s state, reason string) {
	old := t.state
	t.state = s
	c := t.client
	if c.protocolLogger == nil {
		return
	}
	c.protocolLogger.Log(log.Event{
		Timestamp:    c.scheduler.Now(),
		ConnectionID: c.connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerRDM,
		Category:     log.CategoryState,
		Transaction: &log.TransactionEvent{
			ID:           t.id,
			UID:          t.req.UID.String(),
			SubDevice:    t.req.SubDevice,
			ParamID:      t.req.Pid.Value,
			PidName:      t.req.Pid.Name,
			CommandClass: t.req.CommandClass,
			OldState:     old.String(),
			NewState:     s.String(),
			Reason:       reason,
		},
	})
}

func (t *transaction) debug(msg string, args ...any) {
	if t.client.logger == nil {
		return
	}
	t.client.logger.Debug(msg, append([]any{"txn", t.id}, args...)...)
}

// requestClass maps a response class back to the request class that owns
// its layout.
func requestClass(cc wire.CommandClass) wire.CommandClass {
	if cc.IsRequest() {
		return cc
	}
	return cc - 1
}
