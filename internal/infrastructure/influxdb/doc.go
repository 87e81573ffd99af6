// Package influxdb records authgate auth events as time-series points.
//
// Each auth event becomes one point in the auth_events measurement, tagged
// with the event type and role and carrying count=1, so dashboards can sum
// logins, failures and revocations per interval.
//
// Writes are non-blocking and batched (batch_size, flush_interval).
// Async write failures are reported through SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAuthEvent("login_failed", "", time.Now())
package influxdb
