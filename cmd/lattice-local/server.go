package main

import (
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/wire"
)

const maxFrameLen = 64 << 20

// serveConn runs the Hello/Query/Data/Exception/EndOfStream exchange
// for one client connection, one query at a time, matching the
// source's one-query-per-roundtrip session model (no pipelining).
func serveConn(conn net.Conn, serverName string, log *zap.SugaredLogger) {
	defer conn.Close()

	kind, payload, err := wire.ReadFrame(conn, maxFrameLen)
	if err != nil {
		log.Debugw("reading hello frame", "error", err)
		return
	}
	if kind != wire.PacketHello {
		log.Debugw("expected hello packet", "got", kind)
		return
	}
	hello, err := wire.UnmarshalHelloRequest(payload)
	if err != nil {
		log.Debugw("decoding hello packet", "error", err)
		return
	}

	reply := wire.MarshalHelloResponse(wire.HelloResponse{
		ServerName:   serverName,
		VersionMajor: 1,
		Revision:     wire.ProtocolVersion,
		Timezone:     "UTC",
	})
	if err := wire.WriteFrame(conn, wire.PacketHello, reply); err != nil {
		log.Debugw("writing hello response", "error", err)
		return
	}
	log.Infow("client connected", "client", hello.ClientName, "database", hello.Database)

	for {
		kind, payload, err := wire.ReadFrame(conn, maxFrameLen)
		if err != nil {
			if err != io.EOF {
				log.Debugw("reading frame", "error", err)
			}
			return
		}
		if kind != wire.PacketQuery {
			log.Debugw("expected query packet", "got", kind)
			return
		}
		q, err := wire.UnmarshalQueryRequest(payload)
		if err != nil {
			log.Debugw("decoding query packet", "error", err)
			return
		}
		if !handleQuery(conn, serverName, q, log) {
			return
		}
	}
}

func handleQuery(conn net.Conn, serverName string, q wire.QueryRequest, log *zap.SugaredLogger) bool {
	blk, err := execute(serverName, q.Query)
	if err != nil {
		var code int32 = errs.CodeSyntaxError
		msg := err.Error()
		var e *errs.Error
		if errs.As(err, &e) {
			code = e.Code
			msg = e.Message
		}
		payload := wire.MarshalException(wire.Exception{Code: code, Name: "QUERY_ERROR", Message: msg})
		if err := wire.WriteFrame(conn, wire.PacketException, payload); err != nil {
			log.Debugw("writing exception packet", "error", err)
			return false
		}
		return true
	}

	w := wire.NewWriter()
	if err := wire.WriteBlock(w, blk); err != nil {
		log.Errorw("serializing result block", "error", err)
		return false
	}
	if err := wire.WriteFrame(conn, wire.PacketData, w.Bytes()); err != nil {
		log.Debugw("writing data packet", "error", err)
		return false
	}

	progress := wire.MarshalProgress(wire.Progress{ReadRows: uint64(blk.RowCount())})
	if err := wire.WriteFrame(conn, wire.PacketProgress, progress); err != nil {
		log.Debugw("writing progress packet", "error", err)
		return false
	}

	if err := wire.WriteFrame(conn, wire.PacketEndOfStream, nil); err != nil {
		log.Debugw("writing end-of-stream packet", "error", err)
		return false
	}
	return true
}
