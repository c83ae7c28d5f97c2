// Package pybuild sequences the python packaging tools into a single
// pipeline: virtual environment creation, pip upgrade, requirements
// installation, and a one-file PyInstaller build.
package pybuild
