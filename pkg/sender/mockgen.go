package sender

//go:generate sh -c "go run go.uber.org/mock/mockgen -package sender -self_package Otf_go/pkg/sender -destination mock_transport_test.go Otf_go/pkg/sender Transport"
