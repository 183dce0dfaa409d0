// Package rest serves one read-only JSON endpoint per database table,
// using the schema snapshot taken at startup.
//
// Every base table the snapshot saw (minus exclusions) gets a route, and
// the catalog itself is browsable:
//
//	Endpoint          | Description
//	------------------|------------------------------------------------
//	GET /             | Service index
//	GET /health       | Liveness plus a database ping
//	GET /tables       | Manifest of all served tables and their fields
//	GET /tables/{t}   | Field detail, primary keys and reconstructed DDL
//	GET /{table_name} | Every row of the table as a JSON array
//
// Row responses contain all rows with no filtering or pagination; the
// snapshot is static, so schema changes require a restart. Writes are
// rejected with 405.
//
// Example usage:
//
//	src, err := schema.NewPostgresSource(ctx, connString, "public", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer src.Close()
//
//	tables, err := src.Extract(ctx, schema.ExclusionSet("audit_log"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	server := rest.NewServer(src, rest.NewCatalog(tables, logger), nil)
//	log.Fatal(server.Start(":8080"))
package rest
