// Package mpexplain explains multidimensional projections.
//
// Given a high-dimensional data set and its 2-D or 3-D projection, it
// computes for every point why the point ended up next to its neighbours in
// the projection. Two mechanisms are provided:
//
//   - Da Silva: which original attribute the point's projected neighbourhood
//     agrees on most, with the fraction of neighbours that agree.
//   - Van Driel: how many principal components of the neighbourhood's
//     original coordinates are needed to explain a fraction theta of its
//     variance.
//
// For 3-D projections, ExplainNormals also fits a plane to each point's
// projected neighbourhood and reports its normal and eccentricity.
//
// Basic usage:
//
//	pc, err := mpexplain.NewPointContainer(original, reduced, mpexplain.DefaultIndexConfig())
//	cfg := mpexplain.DefaultConfig()
//	cfg.Method = mpexplain.MethodVanDriel
//	res, err := mpexplain.Explain(ctx, pc, cfg)
//	// res.VanDriel[i] explains point i
//	// res.Rankings lists dimensions by how often they were reported
//
// # Neighbourhoods
//
// Neighbourhoods are found in the projected space with an STR bulk-loaded
// R-tree (default), a KD-tree or a ball tree. All three return identical
// neighbourhoods, ties included. Use KNeighborhood for the k nearest points,
// RNeighborhood for an absolute radius, or PointContainer.RelativeRadius for
// a radius given as a fraction of the projection width. A point is never its
// own neighbour.
//
// The explainers process points in parallel and honour context
// cancellation. Results are index-aligned with the input and do not depend
// on the number of workers.
package mpexplain
