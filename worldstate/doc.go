/*
Package worldstate holds the mutable state of one simulation world: the entity
population, the per-type component membership tables, the flat component value
storage, and the change tracker that records which (type, entity) pairs became new or
were marked erased during the current step.

# Buffered erasure

Destructive operations never take effect immediately. RequestEraseEntity and
RemoveComponentFromEntity record marks; the marked entities and components stay fully
readable, show up in the per-type erased views, and are removed only when
FinalizeStep runs at the end of the step. Creation is the mirror image: a component
attached during a step is immediately readable and shows up in the per-type new view
for exactly that step.

This gives every phase of a step the same answer to "what is new" and "what is going
away", no matter where in the phase order the mutation happened.

# Step discipline

FinalizeStep is the only place data is deleted and the only place the step counter
advances. It removes the marked rows from every table in one pass per table
(preserving insertion order for the survivors), drops the marked entities from the
population, clears the transient sets, and increments the counter. A failed step
simply never calls FinalizeStep: the accumulated marks and creations stay attached to
the still-current step number.

# Ordering

Tables and the population both keep insertion order, through commits. Iteration
snapshots are taken when an enumeration starts, so callbacks are free to create and
mark while iterating without affecting the traversal they are inside of.
*/
package worldstate
