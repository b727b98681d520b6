package main

import (
	"fmt"
	"net"
)

// udpSink adapts a UDP socket to swtp.Sink. In connect mode conn is a
// connected (net.DialUDP) socket and remote is nil, so Send uses Write. In
// listen mode conn is unconnected and remote is the single peer learned
// from the first inbound datagram, so Send uses WriteToUDP.
type udpSink struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

func (s *udpSink) Send(frame []byte) error {
	var err error
	if s.remote != nil {
		_, err = s.conn.WriteToUDP(frame, s.remote)
	} else {
		_, err = s.conn.Write(frame)
	}
	if err != nil {
		return fmt.Errorf("udp send: %w", err)
	}
	return nil
}
