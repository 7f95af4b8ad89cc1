// Package redis adapts go-redis to the gateway: the ephemeral store for poll
// state and the pub/sub transport that makes room broadcasts cluster-wide.
// Every command runs through a metrics hook and a circuit breaker hook.
package redis
