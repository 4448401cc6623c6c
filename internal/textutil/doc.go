// Package textutil sanitizes song titles into names that are safe to use as
// output file names on every filesystem the renderer writes to.
package textutil
