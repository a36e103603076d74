// Package features implements the canonical feature engineering for
// spaced-repetition interval prediction: the expansion of eight observed
// review statistics into the ordered 51-element vector consumed by the
// regression model.
//
// Exactly one implementation of the formulas exists in the repository.
// Training-data construction and live serving both call Extract, so the two
// sides cannot drift. The vector layout is positional: normalization
// statistics and the model input layer are keyed to the order documented on
// Extract, and changing that order breaks every stored model artifact.
package features
