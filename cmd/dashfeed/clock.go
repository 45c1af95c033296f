package main

import (
	"context"
	"log/slog"
	"time"
)

// Binance rejects signed requests stamped more than this far ahead of its clock.
const maxClockLead = time.Second

type serverClock interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// checkClock compares the local clock with the exchange and warns when
// signed requests would fall outside recvWindow. It returns the measured
// offset, local minus server.
func checkClock(ctx context.Context, c serverClock, recvWindow time.Duration, logger *slog.Logger) (time.Duration, error) {
	sent := time.Now()
	server, err := c.ServerTime(ctx)
	if err != nil {
		return 0, err
	}
	received := time.Now()

	offset := clockOffset(sent, received, server)
	if offset > maxClockLead || -offset > recvWindow {
		logger.Warn("local clock is out of sync with exchange, signed requests may be rejected",
			"offset", offset,
			"recv_window", recvWindow,
		)
	} else {
		logger.Debug("clock checked", "offset", offset)
	}
	return offset, nil
}

// clockOffset assumes the server stamped its reply halfway through the round trip.
func clockOffset(sent, received, server time.Time) time.Duration {
	mid := sent.Add(received.Sub(sent) / 2)
	return mid.Sub(server)
}
