/*
Package testutil provides testing utilities for the settlement engine.

This package contains test data generators designed to simplify writing
tests for the batch auction components. It supports unit and integration
testing of the whole stack by providing consistent, customizable fixtures.

# Configuration Generators

Functions for creating customizable engine configurations:

	// Create default test config
	cfg := testutil.NewTestConfig()

	// Create custom config with specific options
	cfg := testutil.NewTestConfig(
	    testutil.WithFee(30),
	    testutil.WithDeviationBound(decimal.New(1, -1)),
	)

# Order Generators

Functions for creating revealed orders and commit-reveal pairs:

	// A revealed buy order spending 100 quote units
	order := testutil.NewTestOrder(t, protocol.Buy, "100",
	    testutil.WithMinOut("0.02"),
	    testutil.WithPriorityBid("1"),
	)

	// A matching commitment/reveal request pair for engine tests
	commit, reveal := testutil.CommitRevealPair(t, batch, params, "5")

# Pools

	pool := testutil.NewTestPool(t)                    // 1000 base / 4,000,000 quote
	pool := testutil.NewTestPoolWithReserves(t, "10", "400")

This package is intended for testing purposes only and should not be used
in production code.
*/
package testutil
