// Package daemon assembles a winsessiond session: the layout store, the
// registry, the main-process messenger and one window service per open
// window. It also hot-reloads the daemon configuration.
package daemon
