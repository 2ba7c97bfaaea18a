// Package projects exposes project and area operations of the access
// layer. Projects and areas are separate resource classes; mutations served
// by the modern transport invalidate only the class they touched.
package projects
