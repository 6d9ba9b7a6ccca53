// Package prometheus renders authgate metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts an [authgate.Engine] and exposes an
// [net/http.Handler] serving all engine counters and the validation
// latency histogram. Counter names are prefixed authgate_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry  callers mount
//     the Handler.
//   - Mutate engine state.
package prometheus
