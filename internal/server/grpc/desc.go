package grpc

import (
	"context"

	"github.com/dmitrijs2005/commissions/internal/api"
	"google.golang.org/grpc"
)

// commissionsServer is the handler type checked by RegisterService.
type commissionsServer interface {
	Ping(context.Context, *api.Empty) (*api.PingResponse, error)
}

// unary adapts a typed handler to a grpc.MethodDesc.
func unary[Req, Resp any](name string, fn func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*commissionsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodPing, (*GRPCServer).Ping),
		unary(api.MethodMe, (*GRPCServer).Me),

		unary(api.MethodGetWallet, (*GRPCServer).GetWallet),
		unary(api.MethodListTransactions, (*GRPCServer).ListTransactions),
		unary(api.MethodDeposit, (*GRPCServer).Deposit),
		unary(api.MethodTransferFunds, (*GRPCServer).TransferFunds),
		unary(api.MethodSetAdmin, (*GRPCServer).SetAdmin),

		unary(api.MethodCreateContract, (*GRPCServer).CreateContract),
		unary(api.MethodGetContract, (*GRPCServer).GetContract),
		unary(api.MethodListContracts, (*GRPCServer).ListContracts),
		unary(api.MethodClaimFunds, (*GRPCServer).ClaimFunds),
		unary(api.MethodExtendDeadline, (*GRPCServer).ExtendDeadline),

		unary(api.MethodCreateUpload, (*GRPCServer).CreateUpload),
		unary(api.MethodReviewUpload, (*GRPCServer).ReviewUpload),
		unary(api.MethodListUploads, (*GRPCServer).ListUploads),

		unary(api.MethodCreateCancelTicket, (*GRPCServer).CreateCancelTicket),
		unary(api.MethodRespondCancelTicket, (*GRPCServer).RespondCancelTicket),
		unary(api.MethodCreateRevisionTicket, (*GRPCServer).CreateRevisionTicket),
		unary(api.MethodRespondRevisionTicket, (*GRPCServer).RespondRevisionTicket),
		unary(api.MethodPayRevisionTicket, (*GRPCServer).PayRevisionTicket),
		unary(api.MethodCreateChangeTicket, (*GRPCServer).CreateChangeTicket),
		unary(api.MethodRespondChangeTicket, (*GRPCServer).RespondChangeTicket),
		unary(api.MethodPayChangeTicket, (*GRPCServer).PayChangeTicket),
		unary(api.MethodListTickets, (*GRPCServer).ListTickets),

		unary(api.MethodSubmitResolution, (*GRPCServer).SubmitResolution),
		unary(api.MethodSubmitCounterproof, (*GRPCServer).SubmitCounterproof),
		unary(api.MethodCancelResolution, (*GRPCServer).CancelResolution),
		unary(api.MethodResolveDispute, (*GRPCServer).ResolveDispute),
		unary(api.MethodGetResolution, (*GRPCServer).GetResolution),
		unary(api.MethodListResolutions, (*GRPCServer).ListResolutions),

		unary(api.MethodProcessExpirations, (*GRPCServer).ProcessExpirations),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "commissions.json",
}
