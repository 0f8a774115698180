// Package coordinator wires the push channel, session store, artifact cache,
// command dispatcher and checkpoint resolver around one backend client and
// keeps the channel pointed at the selected file.
package coordinator
