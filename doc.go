// Package robolake converts robot message recordings into flat tables and
// keeps them in a local, SQL-queryable catalog.
//
// A conversion reads every message of a recording (optionally restricted to
// some topics), deserializes it through a per-session type store, flattens
// the nested message into dotted field paths and assembles one row per
// message. Rows can be exported to parquet, CSV or JSON, or appended to a
// catalog table whose schema grows with every append.
//
// # Quick Start
//
//	cfg, err := robolake.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conv, err := robolake.NewConverter(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rows, err := conv.ConvertFile(ctx, "run_2024_05_01.db3", []string{"/imu/data"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cat, err := catalog.Open(cfg.CatalogDir, catalog.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cat.Close()
//
//	if err := cat.Append(ctx, "imu", rows); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := cat.Execute(ctx, `SELECT avg("linear_acceleration.z") FROM imu`)
//
// # Rows
//
// Every row starts with topic, timestamp_seconds and message_type, followed by
// header_timestamp_seconds when the message carries header.stamp. Messages
// that fail to deserialize yield a row with an error column and no message
// fields; the conversion continues.
//
// # Flattening
//
// Nested fields are joined with dots. Sequences of up to five elements are
// expanded as field[0]..field[4]; longer sequences are stored as a JSON
// string. A field that cannot be read is stored as "<error: description>".
package robolake
