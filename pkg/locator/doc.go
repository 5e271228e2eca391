// Package locator discovers bundle archives under configured roots and
// builds the loading context graph for them.
//
// Discovery is first-seen-wins: roots are scanned in configuration order,
// archives within a root in lexical order, and a coordinate already seen is
// ignored. Per-archive problems are logged and skipped; only a root that is
// a regular file fails the whole discovery.
//
// BuildContexts wires each discovered bundle to the context of its declared
// dependency, building parents before children. A bundle whose dependency
// cannot be found falls back to the root context. Bundles taking part in a
// dependency cycle, and bundles depending on them, are rejected.
package locator
