// Package helperfn provides the explicit capability table that replaces
// runtime module:function symbol lookup.
//
// Route and periodic-task configuration reference helpers by name
// (filter_fn, datamap_fn, alldata_fn, format_fn, image_fn, and computed
// targets functions). At startup the host binary populates a Registry
// with concrete Go callables under those names; the rest of the engine
// only ever calls a helper through the Registry, never by loading code
// dynamically.
package helperfn
