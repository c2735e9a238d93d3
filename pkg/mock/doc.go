/*
Package mock provides an in-memory engine.DataProvider for tests.

Instead of a database, the provider answers from expectations registered
up front. Each expectation names an entity, optionally narrows on filters
or column values, and says what to hand back. Requests are matched against
the expectations of their entity in registration order and the first match
wins.

# Registering expectations

	p := mock.NewProvider()

	p.MockDefaultValues("Contact").
		ReturnsValues(engine.Row{"Active": true})

	p.MockItems("Contact").
		FilterEq("Name", "Alice").
		Returns(engine.Row{"Name": "Alice", "Age": 30})

	p.MockScalar("Contact", engine.AggregationCount).
		ReturnsValue(2)

	p.MockSavingItem("Contact", mock.Insert).
		Set("Name", "Bob")

	eng := engine.NewEngine().UseProvider(p)

# Matching

Filters and column values are normalized before comparison, so a query
built with int64(30) matches an expectation registered with 30 or
decimal.NewFromInt(30), and an In list matches regardless of order. An
expectation matches when every condition it names is present in the
request; conditions it does not name are ignored, and an expectation with
no conditions matches every request for its entity.

A read projecting exactly one aggregated column is looked up among scalar
mocks only, and the aggregation has to match. Every other read is looked
up among items mocks.

Or expressions and values the matcher cannot normalize are rejected with
an error wrapping ErrExtraction rather than silently matched.

When nothing matches, reads return a nil response and no error. Unmatched
mutations are ignored: BatchExecute always reports success.

# Verification

Every match increments the expectation's received counter:

	if err := p.Verify(); err != nil {
		t.Fatal(err)
	}

Verify reports every expectation that was never received, joined with
errors.Join. Report summarizes all of them for display.

# Fixtures

Expectations can also be declared in YAML, TOML or JSON files and applied
with LoadFixtures and Fixtures.Apply. Importing the package registers the
"mock" scheme with engine.OpenProvider:

	mock:///path/to/fixtures.yml
	mock://?file=users.yml&file=orders.toml
*/
package mock
