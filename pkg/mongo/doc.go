// Package mongo connects the wallet service to MongoDB.
//
// New retries the initial connect and ping RetryAttempts times, and
// configures majority read and write concern so a consume acknowledged by
// one quotad instance is visible to the next one that reads the wallet.
// NewWithDatabase returns Config.Database directly. Healthcheck exposes a
// ping for the readiness endpoint.
//
// Config is read from MONGODB_* environment variables.
//
// # Usage
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//
//	coll := client.Database(cfg.Database).Collection(mongostore.DefaultCollection)
//	store := mongostore.New(coll, mongostore.WithRetryPolicy(quotaCfg.RetryPolicy()))
//	probe := mongo.Healthcheck(client)
package mongo
