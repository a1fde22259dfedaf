package api

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "commissions.v1.Commissions"

// Method names of the service.
const (
	MethodPing = "Ping"
	MethodMe   = "Me"

	MethodGetWallet        = "GetWallet"
	MethodListTransactions = "ListTransactions"
	MethodDeposit          = "Deposit"
	MethodTransferFunds    = "TransferFunds"
	MethodSetAdmin         = "SetAdmin"

	MethodCreateContract = "CreateContract"
	MethodGetContract    = "GetContract"
	MethodListContracts  = "ListContracts"
	MethodClaimFunds     = "ClaimFunds"
	MethodExtendDeadline = "ExtendDeadline"

	MethodCreateUpload = "CreateUpload"
	MethodReviewUpload = "ReviewUpload"
	MethodListUploads  = "ListUploads"

	MethodCreateCancelTicket    = "CreateCancelTicket"
	MethodRespondCancelTicket   = "RespondCancelTicket"
	MethodCreateRevisionTicket  = "CreateRevisionTicket"
	MethodRespondRevisionTicket = "RespondRevisionTicket"
	MethodPayRevisionTicket     = "PayRevisionTicket"
	MethodCreateChangeTicket    = "CreateChangeTicket"
	MethodRespondChangeTicket   = "RespondChangeTicket"
	MethodPayChangeTicket       = "PayChangeTicket"
	MethodListTickets           = "ListTickets"

	MethodSubmitResolution   = "SubmitResolution"
	MethodSubmitCounterproof = "SubmitCounterproof"
	MethodCancelResolution   = "CancelResolution"
	MethodResolveDispute     = "ResolveDispute"
	MethodGetResolution      = "GetResolution"
	MethodListResolutions    = "ListResolutions"

	MethodProcessExpirations = "ProcessExpirations"
)

// FullMethod returns the path a method is invoked on, e.g.
// "/commissions.v1.Commissions/Ping".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// Public reports whether a method may be called without an access token.
func Public(fullMethod string) bool {
	return fullMethod == FullMethod(MethodPing)
}
