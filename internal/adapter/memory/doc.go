// Package memory provides single-process implementations of the ephemeral
// store and the broadcast transport. They back REDIS_URL-less deployments
// and unit tests.
package memory
