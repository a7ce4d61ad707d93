/*
Package dispatcher provides a synchronous, in-process topic dispatcher.
Subscribers register a handler against named topics; Publish fans a value out to every live
subscriber of each named topic in registration order, isolating subscriber faults.
*/
package dispatcher
