// Package scene resolves source files into scenes, the individual 2D datasets
// the pipeline works on, and gives every scene a unique identifier.
//
// Image files hold exactly one scene named after the file stem. netCDF files may
// hold several scenes along a scene dimension: the values of their scene_id
// variable are used verbatim, or, when the file has no scene_id, its time
// coordinate formatted as YYYYMMDDhhmm. A netCDF file with neither is rejected,
// as is any identifier seen twice.
//
// Decoding netCDF is left to an Opener supplied through Options.
package scene
