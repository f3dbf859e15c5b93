// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const opLabel = "op"

type metrics struct {
	requestsCreated   prometheus.Counter
	feeUpdates        prometheus.Counter
	relays            prometheus.Counter
	settlements       prometheus.Counter
	invalidSignatures prometheus.Counter
	hookFailures      prometheus.Counter
	reverts           *prometheus.CounterVec
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_requests_created",
			Help:      "Number of swap requests escrowed",
		}),
		feeUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_request_fee_updates",
			Help:      "Number of fee increases on unfulfilled requests",
		}),
		relays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relays",
			Help:      "Number of destination-side deliveries",
		}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements",
			Help:      "Number of solver payouts",
		}),
		invalidSignatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_signatures",
			Help:      "Number of settlements rejected for a bad BLS signature",
		}),
		hookFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_failures",
			Help:      "Number of post-settlement hooks that returned an error",
		}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverts",
			Help:      "Number of operations that aborted, by operation",
		}, []string{opLabel}),
	}
	if registerer == nil {
		return m, nil
	}
	err := errors.Join(
		registerer.Register(m.requestsCreated),
		registerer.Register(m.feeUpdates),
		registerer.Register(m.relays),
		registerer.Register(m.settlements),
		registerer.Register(m.invalidSignatures),
		registerer.Register(m.hookFailures),
		registerer.Register(m.reverts),
	)
	return m, err
}
