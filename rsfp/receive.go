package rsfp

import "github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/errcode"

// Feed appends received bytes to the line-assembly buffer and processes
// every complete CRLF-terminated line found. It is the only place bytes
// from the transport enter the endpoint (spec.md §4.1 "Receive state
// machine").
func (e *Endpoint) Feed(data []byte) {
	for _, b := range data {
		e.rxBuf = append(e.rxBuf, b)
		if len(e.rxBuf) > MaxFrameSize {
			e.reportFraming("line too long")
			e.rxBuf = e.rxBuf[:0]
			continue
		}
		if b != '\n' {
			continue
		}
		line := e.rxBuf
		e.rxBuf = nil
		e.handleLine(line)
		if e.Yield != nil {
			e.Yield()
		}
	}
}

func (e *Endpoint) handleLine(line []byte) {
	n := len(line)
	if n < 2 || line[n-2] != '\r' {
		e.reportFraming("missing CRLF terminator")
		return
	}
	body := line[:n-2]
	if len(body) == 0 {
		e.reportFraming("empty line")
		return
	}
	switch body[0] {
	case '+':
		e.handleNormal(body)
	case '#':
		e.handleControl(body)
	case '>':
		// Control-response: diagnostics only, safe to ignore.
	default:
		e.reportFraming("unknown start byte")
	}
}

func (e *Endpoint) handleNormal(body []byte) {
	if len(body) < 3 || body[2] != ' ' || !isSeqByte(body[1]) {
		e.reportFraming("malformed normal frame")
		return
	}
	seq := seqFromByte(body[1])
	payload := body[3:]

	if seq == e.nextRxSeq {
		e.nextRxSeq = (e.nextRxSeq + 1) % SeqModulo
		e.sendAck(e.nextRxSeq)
		e.onReceive.Fire(append([]byte(nil), payload...))
		return
	}
	// Out-of-order: re-send the last ack to trigger peer retransmission
	// (duplicate suppression).
	e.resendLastAck()
}

func (e *Endpoint) sendAck(value uint8) {
	e.lastAckSent = value
	e.haveSentAck = true
	_, _ = e.out.Write(encodeControl(opAck, seqByte(value)))
}

func (e *Endpoint) resendLastAck() {
	if !e.haveSentAck {
		return
	}
	_, _ = e.out.Write(encodeControl(opAck, seqByte(e.lastAckSent)))
}

func (e *Endpoint) handleControl(body []byte) {
	if len(body) != 3 {
		e.reportControlError(errWrongCtrlSize, errcode.Framing, "wrong control-frame size")
		return
	}
	op, arg := body[1], body[2]
	switch op {
	case opAck:
		if !isSeqByte(arg) {
			e.reportFraming("malformed ack arg")
			return
		}
		e.processAck(seqFromByte(arg))
	case opError:
		e.onError.Fire(ErrorEvent{Code: errcode.Framing, Detail: "peer reported " + string(arg)})
	case opTimeout:
		switch arg {
		case '+':
			e.timeoutEnabled = true
		case '-':
			e.timeoutEnabled = false
		default:
			e.reportControlError(errUnknownCtrlOp, errcode.Framing, "malformed timeout arg")
			return
		}
		_, _ = e.out.Write(encodeControlResponse(opTimeout, []byte{arg}))
	case opDebug:
		_, _ = e.out.Write(encodeControlResponse(opDebug, e.debugSnapshot()))
	default:
		e.reportControlError(errUnknownCtrlOp, errcode.Framing, "unknown control op")
	}
}

func (e *Endpoint) debugSnapshot() []byte {
	return []byte{seqByte(e.nextTxSeq), seqByte(e.nextRxSeq)}
}

func (e *Endpoint) reportFraming(detail string) {
	e.reportControlError(errBadFraming, errcode.Framing, detail)
}

func (e *Endpoint) reportControlError(wireCode byte, code errcode.Code, detail string) {
	_, _ = e.out.Write(encodeControl(opError, wireCode))
	e.onError.Fire(ErrorEvent{Code: code, Detail: detail})
}
