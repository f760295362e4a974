// Command extrad runs the extras daemon and provides CLI access to its
// status, queue, trigger, history, and configuration surfaces.
package main
