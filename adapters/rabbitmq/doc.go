/*
Package rabbitmq provides a RabbitMQ fault reporter for the dispatcher.
It publishes fault records to an AMQP topic exchange, includes an auto-reconnect publisher,
and supports optional header propagation via a dispatch.HeaderPropagator.
*/
package rabbitmq
