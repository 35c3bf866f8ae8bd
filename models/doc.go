// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and document types for the API.

# Documents

Types stored in the remote document tree:

  - Profile: messOwners/<uid>/profile or canteenOwners/<uid>/profile
  - WeeklyMenu: <type>Owners/<uid>/weekdays/<Su..Sa>/meals/<meal>
  - VoteRecord: votes/<serviceId>/<day>/<meal>/<itemId>
  - SchedulerSettings: admin/schedulerSettings

# Request Types

  - RegisterOwnerRequest: type, messName, email, phone
  - UpdateProfileRequest: optional messName, phone
  - SetStatusRequest: open
  - EditModeRequest: enabled
  - AdminLoginRequest: password
  - SchedulerEnabledRequest: enabled
  - SuggestionRequest: name

# Response Types

  - RegisterOwnerResponse: uid, type, owner_key
  - Listing, ListingDetail: directory views
  - VoteResponse: count and this device's vote
  - SchedulerStatus: scheduler dashboard
  - ErrorResponse: error, message

# Keys

Days use two-letter keys Su..Sa (Sunday first); meals are breakfast,
lunch and dinner. MealLabel renames lunch/dinner for canteens.
*/
package models
